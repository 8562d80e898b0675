// Package handler holds helpers shared by the HTTP handlers.
package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/errors"
	pkgvalidator "github.com/jwalitptl/booking-api/pkg/validator"
)

// DateRange is the `from`/`to` query pair accepted by listing endpoints.
type DateRange struct {
	From string `form:"from" json:"from" binding:"required,datekey"`
	To   string `form:"to" json:"to" binding:"required,datekey"`
}

// Dates parses both ends of the range. Either end missing or malformed is a
// ValidationError.
func (r DateRange) Dates() (civildate.Date, civildate.Date, error) {
	if r.From == "" || r.To == "" {
		return civildate.Date{}, civildate.Date{}, errors.BadRequest("from and to are required", nil)
	}
	from, err := ParseDate("from", r.From)
	if err != nil {
		return civildate.Date{}, civildate.Date{}, err
	}
	to, err := ParseDate("to", r.To)
	if err != nil {
		return civildate.Date{}, civildate.Date{}, err
	}
	return from, to, nil
}

// ParseDate parses an optional date query value; empty yields the zero Date.
func ParseDate(field, value string) (civildate.Date, error) {
	if value == "" {
		return civildate.Date{}, nil
	}
	d, err := civildate.Parse(value)
	if err != nil {
		return civildate.Date{}, errors.BadRequest(field+" must be a YYYY-MM-DD date", err)
	}
	return d, nil
}

// BindJSON decodes the body into req and turns any failure into a
// ValidationError.
func BindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return bindError(err)
	}
	return nil
}

// BindQuery is BindJSON for query strings.
func BindQuery(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return bindError(err)
	}
	return nil
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		return errors.BadRequest(pkgvalidator.Summary(err), err)
	}
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return errors.BadRequest("request body too large", err)
	}
	return errors.BadRequest("malformed request body", err)
}
