package models

// Requests for the regime HTTP endpoints.

type RunRequest struct {
	Series           []string `json:"series" validate:"omitempty,dive,required"`
	PreCrisisMonths  *int     `json:"pre_crisis_months" validate:"omitempty,gte=0,lte=120"`
	PostCrisisMonths *int     `json:"post_crisis_months" validate:"omitempty,gte=0,lte=120"`
	Window           int      `json:"window" default:"30" validate:"gte=2,lte=2520"`
}

type SeriesRowsRequest struct {
	Name   string `param:"name" validate:"required"`
	Regime string `query:"regime" validate:"omitempty,oneof=normal pre_crisis crisis post_crisis"`
	From   string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit  int    `query:"limit" default:"5000" validate:"gte=1,lte=50000"`
}

type SummaryRequest struct {
	Name string `param:"name" validate:"required"`
}
