package feature

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type ChangepointComp string

const (
	ChangepointCompSlope ChangepointComp = "slope"
)

// Changepoint is a hinge on the trend where the growth rate may change
type Changepoint struct {
	Name            string          `json:"name"`
	ChangepointComp ChangepointComp `json:"changepoint_component"`
}

func NewChangepoint(name string, comp ChangepointComp) *Changepoint {
	return &Changepoint{name, comp}
}

func (c Changepoint) String() string {
	return fmt.Sprintf("chpnt_%s_%s", c.Name, c.ChangepointComp)
}

func (c Changepoint) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	case "changepoint_component":
		return string(c.ChangepointComp), true
	}
	return "", false
}

func (c Changepoint) Type() FeatureType {
	return FeatureTypeChangepoint
}

func (c Changepoint) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = c.Name
	res["changepoint_component"] = string(c.ChangepointComp)
	return res
}

func (c *Changepoint) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name            string `json:"name"`
		ChangepointComp string `json:"changepoint_component"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	c.Name = labelStr.Name
	c.ChangepointComp = ChangepointComp(labelStr.ChangepointComp)
	return nil
}

// Generate returns the hinge max(0, t - chpt) in training scaled time units.
func (c Changepoint) Generate(epoch []float64, chpt, trainStartTime, trainEndTime time.Time) []float64 {
	scaled := ScaleEpoch(epoch, trainStartTime, trainEndTime)
	chptScaled := ScaleEpoch([]float64{EpochSeconds(chpt)}, trainStartTime, trainEndTime)[0]
	res := make([]float64, len(epoch))
	for i, s := range scaled {
		if s > chptScaled {
			res[i] = s - chptScaled
		}
	}
	return res
}
