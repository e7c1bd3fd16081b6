package options

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/forecast/util"
)

// Changepoint describes a point in time where the slope of the trend may change
type Changepoint struct {
	T    time.Time `json:"time" yaml:"time"`
	Name string    `json:"name,omitempty" yaml:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ResolveChangepoints returns the explicit changepoints when set and otherwise places
// NChangepoints evenly by row index over the first ChangepointRange of history. The first row
// is never a changepoint and at most one fewer changepoint than the number of rows in range is
// placed.
func (o *Options) ResolveChangepoints(t []time.Time) []Changepoint {
	if len(o.Changepoints) > 0 {
		res := make([]Changepoint, len(o.Changepoints))
		for i, chpt := range o.Changepoints {
			if chpt.Name == "" {
				chpt.Name = strconv.Itoa(i)
			}
			res[i] = chpt
		}
		return res
	}

	histSize := int(math.Floor(float64(len(t)) * o.ChangepointRange))
	n := o.NChangepoints
	if n > histSize-1 {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}

	chpts := make([]Changepoint, 0, n)
	step := float64(histSize-1) / float64(n)
	lastIdx := 0
	for i := 1; i <= n; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx <= lastIdx {
			continue
		}
		lastIdx = idx
		chpts = append(chpts, NewChangepoint("auto_"+strconv.Itoa(len(chpts)), t[idx]))
	}
	return chpts
}

// FilterChangepoints drops changepoints outside of the open training window since they would
// only generate zero valued or constant features.
func FilterChangepoints(chpts []Changepoint, trainStartTime, trainEndTime time.Time) []Changepoint {
	res := make([]Changepoint, 0, len(chpts))
	for _, chpt := range chpts {
		if !chpt.T.After(trainStartTime) || !chpt.T.Before(trainEndTime) {
			continue
		}
		res = append(res, chpt)
	}
	return res
}

// GenerateChangepointFeatures creates a slope hinge per changepoint on the training scaled time
func GenerateChangepointFeatures(t []time.Time, chpts []Changepoint, trainStartTime, trainEndTime time.Time) *feature.Set {
	epoch := make([]float64, len(t))
	for i, tPnt := range t {
		epoch[i] = feature.EpochSeconds(tPnt)
	}

	x := feature.NewSet()
	for _, chpt := range chpts {
		f := feature.NewChangepoint(chpt.Name, feature.ChangepointCompSlope)
		x.Set(f, f.Generate(epoch, chpt.T, trainStartTime, trainEndTime))
	}
	return x
}

// ChangepointTable prints the changepoints
func ChangepointTable(chpts []Changepoint, w io.Writer, prefix, indent string, indentGrowth int) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	noCfg := " None"
	if len(chpts) > 0 {
		noCfg = ""
		if _, err := fmt.Fprintf(tbl, "%s%sName\tDatetime\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sChangepoints:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	for _, chpt := range chpts {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			chpt.Name, chpt.T.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
