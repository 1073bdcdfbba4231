package api

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"pet-adoption-portal/internal/model"
)

func (c *Client) Dashboard(ctx context.Context) (model.Dashboard, error) {
	var d model.Dashboard
	err := c.do(ctx, "admin.dashboard", http.MethodGet, "/admin/dashboard", nil, &d)
	return d, err
}

func (c *Client) AdoptionReport(ctx context.Context) (model.AdoptionReport, error) {
	var r model.AdoptionReport
	err := c.report(ctx, "adoptions", &r)
	return r, err
}

func (c *Client) UserReport(ctx context.Context) (model.UserReport, error) {
	var r model.UserReport
	err := c.report(ctx, "users", &r)
	return r, err
}

func (c *Client) PetReport(ctx context.Context) (model.PetReport, error) {
	var r model.PetReport
	err := c.report(ctx, "pets", &r)
	return r, err
}

// report fetches a loosely shaped report map and decodes the keys we know
// into out. Unknown keys are ignored.
func (c *Client) report(ctx context.Context, kind string, out any) error {
	op := "admin.report." + kind
	var raw map[string]any
	if err := c.do(ctx, op, http.MethodGet, "/admin/reports/"+kind, nil, &raw); err != nil {
		return err
	}
	if err := decodeReport(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, op, err)
	}
	return nil
}

var timeType = reflect.TypeOf(model.Time{})

func decodeReport(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       stringToModelTime,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func stringToModelTime(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return model.Time{}, nil
	}
	return model.ParseTime(s)
}
