package forecast

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/forecast/options"
	"github.com/aouyang1/go-costcast/forecast/util"
	"github.com/goccy/go-json"
)

var (
	ErrUnknownFeatureType = errors.New("unknown feature type")
	ErrInvalidModel       = errors.New("invalid forecast model")
)

// Model represents a serializeable format of a forecast storing the forecast options, the
// structure resolved during training, fit scores, and coefficients
type Model struct {
	TrainStartTime time.Time                   `json:"train_start_time"`
	TrainEndTime   time.Time                   `json:"train_end_time"`
	Options        *options.Options            `json:"options"`
	Changepoints   []options.Changepoint       `json:"changepoints,omitempty"`
	Seasonalities  []options.SeasonalityConfig `json:"seasonalities,omitempty"`
	Holidays       []options.HolidayGroup      `json:"holidays,omitempty"`
	Scaling        Scaling                     `json:"scaling"`
	Scores         *Scores                     `json:"scores"`
	Weights        Weights                     `json:"weights"`
}

// Model returns the serializeable format of the forecast model
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	fws := make([]FeatureWeight, 0, len(f.coef))
	labels := f.fLabels.Labels()
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}
	m := Model{
		TrainStartTime: f.trainStartTime,
		TrainEndTime:   f.trainEndTime,
		Options:        f.opt,
		Changepoints:   f.chpts,
		Seasonalities:  f.seasonalities,
		Holidays:       f.holidays,
		Scaling:        f.scale,
		Scores:         f.scores,
		Weights:        Weights{Coef: fws},
	}
	return m, nil
}

// NewFromModel creates a new forecast instance given a forecast Model to initialize. This
// instance can be used for inferrence immediately and does not need to be trained again.
func NewFromModel(model Model) (*Forecast, error) {
	opt := model.Options
	if opt == nil {
		opt = options.NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if len(model.Weights.Coef) == 0 {
		return nil, fmt.Errorf("no weights, %w", ErrInvalidModel)
	}
	if model.Scaling.Y == 0 {
		return nil, fmt.Errorf("zero y scale, %w", ErrInvalidModel)
	}

	labels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, err
	}

	f := &Forecast{
		opt:            opt,
		scores:         model.Scores,
		chpts:          model.Changepoints,
		seasonalities:  model.Seasonalities,
		holidays:       model.Holidays,
		trainStartTime: model.TrainStartTime,
		trainEndTime:   model.TrainEndTime,
		scale:          model.Scaling,
		fLabels:        feature.NewLabels(labels),
		coef:           model.Weights.Coefficients(),
		trained:        true,
	}
	return f, nil
}

func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s%sTraining Window: %s to %s\n", prefix, util.IndentExpand(indent, 1),
		m.TrainStartTime.Format(time.RFC3339), m.TrainEndTime.Format(time.RFC3339)); err != nil {
		return err
	}

	if m.Options != nil {
		if err := m.Options.TablePrint(w, prefix, indent, 1); err != nil {
			return err
		}
	}
	if err := options.ChangepointTable(m.Changepoints, w, prefix, indent, 1); err != nil {
		return err
	}
	if err := options.SeasonalityTable(m.Seasonalities, w, prefix, indent, 1); err != nil {
		return err
	}
	if err := options.HolidayTable(m.Holidays, w, prefix, indent, 1); err != nil {
		return err
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, util.IndentExpand(indent, 0)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f\n",
			prefix, util.IndentExpand(indent, 1),
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
		); err != nil {
			return err
		}
	}

	return m.Weights.tablePrint(w, prefix, indent, 0)
}

// Weights stores the coefficients for the forecast model
type Weights struct {
	Coef []FeatureWeight `json:"coefficients"`
}

// FeatureLabels returns all of the feature labels in the same order as the coefficients
func (w *Weights) FeatureLabels() ([]feature.Feature, error) {
	labels := make([]feature.Feature, 0, len(w.Coef))
	for _, fw := range w.Coef {
		feat, err := fw.ToFeature()
		if err != nil {
			return nil, err
		}
		labels = append(labels, feat)
	}
	return labels, nil
}

// Coefficients returns a slice copy of the coefficients
func (w *Weights) Coefficients() []float64 {
	coef := make([]float64, 0, len(w.Coef))
	for _, fw := range w.Coef {
		coef = append(coef, fw.Value)
	}
	return coef
}

func (w Weights) tablePrint(wr io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(wr, "%s%sWeights:\n", prefix, util.IndentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabels\tValue\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, fw := range w.Coef {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			fw.Type, string(labelOut), val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// FeatureWeight represents a feature described with a type e.g. changepoint, labels and the value
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}

// ToFeature transforms the Type and Labels into a feature type
func (fw *FeatureWeight) ToFeature() (feature.Feature, error) {
	if fw == nil {
		return nil, ErrUnknownFeatureType
	}

	bytes, err := json.Marshal(fw.Labels)
	if err != nil {
		return nil, err
	}

	var feat feature.Feature
	switch fw.Type {
	case feature.FeatureTypeChangepoint:
		feat = new(feature.Changepoint)
	case feature.FeatureTypeSeasonality:
		feat = new(feature.Seasonality)
	case feature.FeatureTypeEvent:
		feat = new(feature.Event)
	case feature.FeatureTypeGrowth:
		feat = new(feature.Growth)
	default:
		return nil, fmt.Errorf("type %d, %w", fw.Type, ErrUnknownFeatureType)
	}
	if err := json.Unmarshal(bytes, feat); err != nil {
		return nil, err
	}
	return feat, nil
}
