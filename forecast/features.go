package forecast

import (
	"time"

	"github.com/aouyang1/go-costcast/feature"
	"github.com/aouyang1/go-costcast/forecast/options"
)

// design holds the feature sets of a forecast split by how they enter the model
type design struct {
	trend          *feature.Set
	additive       *feature.Set
	multiplicative *feature.Set
}

func epochSeconds(t []time.Time) []float64 {
	epoch := make([]float64, len(t))
	for i, tPnt := range t {
		epoch[i] = feature.EpochSeconds(tPnt)
	}
	return epoch
}

func (f *Forecast) trendFeatures(t []time.Time) *feature.Set {
	epoch := epochSeconds(t)
	x := feature.NewSet()
	for _, g := range []*feature.Growth{feature.Intercept(), feature.Linear()} {
		x.Set(g, g.Generate(epoch, f.trainStartTime, f.trainEndTime))
	}
	x.Update(options.GenerateChangepointFeatures(t, f.chpts, f.trainStartTime, f.trainEndTime))
	return x
}

func (f *Forecast) seasonalityFeatures(t []time.Time, cfg options.SeasonalityConfig) *feature.Set {
	return options.GenerateSeasonalityFeatures(t, []options.SeasonalityConfig{cfg})
}

func (f *Forecast) holidayFeatures(t []time.Time, group options.HolidayGroup) *feature.Set {
	return options.GenerateHolidayFeatures(t, []options.HolidayGroup{group})
}

func (f *Forecast) generateFeatures(t []time.Time, holidays []options.HolidayGroup) design {
	d := design{
		trend:          f.trendFeatures(t),
		additive:       feature.NewSet(),
		multiplicative: feature.NewSet(),
	}
	for _, cfg := range f.seasonalities {
		x := f.seasonalityFeatures(t, cfg)
		if f.opt.IsMultiplicative(cfg.Mode) {
			d.multiplicative.Update(x)
			continue
		}
		d.additive.Update(x)
	}
	hx := options.GenerateHolidayFeatures(t, holidays)
	if f.opt.IsMultiplicative("") {
		d.multiplicative.Update(hx)
	} else {
		d.additive.Update(hx)
	}
	return d
}

// penalties maps prior scales onto per coefficient penalties given the noise variance. Growth
// terms are free, changepoints get a lasso penalty and seasonal and holiday terms a ridge penalty.
func (f *Forecast) penalties(labels []feature.Feature, sigma2 float64) ([]float64, []float64) {
	seasScale := make(map[string]float64, len(f.seasonalities))
	for _, cfg := range f.seasonalities {
		seasScale[cfg.Name] = f.opt.SeasonalityPriorScaleOf(cfg)
	}
	holScale := make(map[string]float64, len(f.holidays))
	for _, h := range f.holidays {
		holScale[h.Name] = f.opt.HolidayPriorScaleOf(h)
	}

	l1 := make([]float64, len(labels))
	l2 := make([]float64, len(labels))
	for i, label := range labels {
		name, _ := label.Get("name")
		switch label.Type() {
		case feature.FeatureTypeChangepoint:
			l1[i] = sigma2 / f.opt.ChangepointPriorScale
		case feature.FeatureTypeSeasonality:
			scale := seasScale[name]
			if scale <= 0 {
				scale = f.opt.SeasonalityPriorScale
			}
			l2[i] = sigma2 / (scale * scale)
		case feature.FeatureTypeEvent:
			scale := holScale[name]
			if scale <= 0 {
				scale = f.opt.HolidaysPriorScale
			}
			l2[i] = sigma2 / (scale * scale)
		}
	}
	return l1, l2
}

// scaleRows returns a copy of the set with every feature multiplied row wise by w
func scaleRows(x *feature.Set, w []float64) *feature.Set {
	res := feature.NewSet()
	for _, label := range x.Labels().Labels() {
		vals, _ := x.Get(label)
		scaled := make([]float64, len(vals))
		for i := range vals {
			scaled[i] = vals[i] * w[i]
		}
		res.Set(label, scaled)
	}
	return res
}

// joinSets concatenates feature sets keeping the order of their labels
func joinSets(sets ...*feature.Set) *feature.Set {
	res := feature.NewSet()
	for _, s := range sets {
		res.Update(s)
	}
	return res
}

// withoutChangepoints drops the changepoint features of a set
func withoutChangepoints(x *feature.Set) *feature.Set {
	return x.Filter(feature.FeatureTypeGrowth, feature.FeatureTypeSeasonality, feature.FeatureTypeEvent)
}
