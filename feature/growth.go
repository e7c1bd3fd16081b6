package feature

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	GrowthIntercept = "intercept"
	GrowthLinear    = "linear"
)

// Growth is a trend feature that is never regularized
type Growth struct {
	Name string `json:"name"`
}

func NewGrowth(name string) *Growth {
	return &Growth{name}
}

// String returns the string representation of the growth feature
func (g Growth) String() string {
	return fmt.Sprintf("growth_%s", g.Name)
}

// Get returns the value of an arbitrary label and returns the value along with whether
// the label exists
func (g Growth) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return g.Name, true
	}
	return "", false
}

// Type returns the type of this feature
func (g Growth) Type() FeatureType {
	return FeatureTypeGrowth
}

// Decode converts the feature into a map of label values
func (g Growth) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = g.Name
	return res
}

// UnmarshalJSON is the custom unmarshalling to convert a map[string]string
// to a growth feature
func (g *Growth) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	g.Name = labelStr.Name
	return nil
}

// Generate computes the feature values at each epoch second. Linear growth is scaled so
// the training start maps to 0 and the training end maps to 1.
func (g Growth) Generate(epoch []float64, trainStartTime, trainEndTime time.Time) []float64 {
	res := make([]float64, len(epoch))
	switch g.Name {
	case GrowthIntercept:
		for i := range res {
			res[i] = 1.0
		}
	case GrowthLinear:
		copy(res, ScaleEpoch(epoch, trainStartTime, trainEndTime))
	}
	return res
}

// ScaleEpoch maps epoch seconds onto the training window where the start is 0 and the
// end is 1. A zero width window maps everything relative to the start only.
func ScaleEpoch(epoch []float64, trainStartTime, trainEndTime time.Time) []float64 {
	start := EpochSeconds(trainStartTime)
	width := trainEndTime.Sub(trainStartTime).Seconds()
	if width <= 0 {
		width = 1.0
	}
	res := make([]float64, len(epoch))
	for i, e := range epoch {
		res[i] = (e - start) / width
	}
	return res
}

func Intercept() *Growth {
	return NewGrowth(GrowthIntercept)
}

func Linear() *Growth {
	return NewGrowth(GrowthLinear)
}

// EpochSeconds returns the unix time of t in fractional seconds
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}
