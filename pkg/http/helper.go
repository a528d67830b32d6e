package http

import (
	"net/http"
	"strconv"

	"booktable/pkg/civil"
	"booktable/pkg/config"
	apperrors "booktable/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidField("limit", "invalid limit parameter: "+s)
		}
		limit = v
	}

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidField("offset", "invalid offset parameter: "+s)
		}
		offset = v
	}

	return config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset), nil
}

// OptionalDate parses the named query parameter; ok is false when it is absent.
func OptionalDate(r *http.Request, name string) (civil.Date, bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return civil.Date{}, false, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, false, apperrors.InvalidField(name, err.Error())
	}
	return d, true, nil
}

func OptionalTime(r *http.Request, name string) (civil.TimeOfDay, bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return civil.TimeOfDay{}, false, nil
	}
	t, err := civil.ParseTime(s)
	if err != nil {
		return civil.TimeOfDay{}, false, apperrors.InvalidField(name, err.Error())
	}
	return t, true, nil
}

func OptionalInt(r *http.Request, name string) (int, bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, apperrors.InvalidField(name, "invalid "+name+" parameter: "+s)
	}
	return v, true, nil
}
