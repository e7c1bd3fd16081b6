package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aouyang1/go-costcast"
	"github.com/aouyang1/go-costcast/forecast"
	"github.com/aouyang1/go-costcast/materials"
	"github.com/creasty/defaults"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ForecastRequest selects the number of months to forecast
type ForecastRequest struct {
	Name    string `param:"name" validate:"required"`
	Periods int    `query:"periods" default:"12" validate:"gte=1,lte=120"`
}

// ChartRequest selects the time range of the chart and whether the forecast and its bounds
// are drawn
type ChartRequest struct {
	Name     string `param:"name" validate:"required"`
	Range    string `query:"range" default:"5yr" validate:"oneof=1yr 5yr 10yr max"`
	Forecast bool   `query:"forecast"`
	Band     bool   `query:"band"`
	Periods  int    `query:"periods" default:"12" validate:"gte=1,lte=120"`
}

// MaterialSummary is a row of the material listing
type MaterialSummary struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	Points     int               `json:"points"`
	LatestDate time.Time         `json:"latest_date"`
	Latest     float64           `json:"latest"`
	Changes    materials.Changes `json:"changes"`
}

// Point is a single forecast month
type Point struct {
	DS    time.Time `json:"ds"`
	YHat  float64   `json:"yhat"`
	Lower float64   `json:"yhat_lower"`
	Upper float64   `json:"yhat_upper"`
}

// ForecastResponse holds the forecast of a material
type ForecastResponse struct {
	Key      string  `json:"key"`
	Name     string  `json:"name"`
	Periods  int     `json:"periods"`
	Forecast []Point `json:"forecast"`
}

func bindRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	if err := defaults.Set(req); err != nil {
		return err
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

func (s *Server) material(name string) (*materials.Material, error) {
	m, err := s.catalog.Get(name)
	if errors.Is(err, materials.ErrUnknownMaterial) {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	}
	return m, err
}

// Health reports the number of loaded materials
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"materials": s.catalog.Len(),
	})
}

// ListMaterials lists every material with its latest value and changes
func (s *Server) ListMaterials(c echo.Context) error {
	list := s.catalog.List()
	res := make([]MaterialSummary, 0, len(list))
	for _, m := range list {
		summary := MaterialSummary{
			Key:     m.Key,
			Name:    m.Name,
			Points:  m.Data.Len(),
			Changes: m.Changes,
		}
		if n := m.Data.Len(); n > 0 {
			summary.LatestDate = m.Data.T[n-1]
			summary.Latest = m.Data.Y[n-1]
		}
		res = append(res, summary)
	}
	return c.JSON(http.StatusOK, res)
}

// Forecast returns the monthly forecast of a material
func (s *Server) Forecast(c echo.Context) error {
	req := &ForecastRequest{}
	if err := bindRequest(c, req); err != nil {
		return err
	}
	m, err := s.material(req.Name)
	if err != nil {
		return err
	}
	res, err := s.forecast(m, req.Periods)
	if err != nil {
		return fmt.Errorf("unable to forecast %s, %w", m.Key, err)
	}

	points := make([]Point, 0, res.Len())
	for i, t := range res.T {
		points = append(points, Point{
			DS:    t,
			YHat:  res.YHat[i],
			Lower: res.YHatLower[i],
			Upper: res.YHatUpper[i],
		})
	}
	return c.JSON(http.StatusOK, ForecastResponse{
		Key:      m.Key,
		Name:     m.Name,
		Periods:  req.Periods,
		Forecast: points,
	})
}

// Chart renders the chart page of a material over the selected range
func (s *Server) Chart(c echo.Context) error {
	req := &ChartRequest{}
	if err := bindRequest(c, req); err != nil {
		return err
	}
	m, err := s.material(req.Name)
	if err != nil {
		return err
	}
	history, err := materials.FilterRange(m.Data, req.Range)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	var fc *forecast.Result
	if req.Forecast {
		fc, err = s.forecast(m, req.Periods)
		if err != nil {
			return fmt.Errorf("unable to forecast %s, %w", m.Key, err)
		}
	}

	page := components.NewPage()
	page.PageTitle = m.Name
	page.AddCharts(costcast.LineMaterial(m.Name, history, fc, req.Band))

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return page.Render(c.Response())
}
