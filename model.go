package costcast

import (
	"fmt"
	"io"

	"github.com/aouyang1/go-costcast/forecast"
)

// Model is the serializeable form of a fitted Forecaster
type Model struct {
	Options *Options       `json:"options"`
	Series  forecast.Model `json:"series"`
}

// TablePrint writes a human readable summary of the model
func (m Model) TablePrint(w io.Writer) error {
	if m.Options != nil && m.Options.OutlierOptions != nil {
		o := m.Options.OutlierOptions
		if _, err := fmt.Fprintf(w, "Outliers: passes %d    percentiles [%.3f, %.3f]    tukey %.3f\n",
			o.NumPasses, o.LowerPercentile, o.UpperPercentile, o.TukeyFactor); err != nil {
			return err
		}
	}
	return m.Series.TablePrint(w, "", "  ")
}
