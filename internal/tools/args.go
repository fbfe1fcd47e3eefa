package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

func getString(req Request, key string) (string, error) {
	v, ok := req.Args[key]
	if !ok || v == nil {
		return "", invalidInput(string(req.Tool), "missing required field: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidInput(string(req.Tool), "argument must be string: %s", key)
	}
	return s, nil
}

// getOptionalString returns "" for an absent field.
func getOptionalString(req Request, key string) (string, error) {
	if _, ok := req.Args[key]; !ok {
		return "", nil
	}
	return getString(req, key)
}

// getNumber accepts JSON numbers as decoded by encoding/json, plain ints and
// numeric strings, since models are loose about argument types.
func getNumber(req Request, key string) (float64, error) {
	v, ok := req.Args[key]
	if !ok || v == nil {
		return 0, invalidInput(string(req.Tool), "missing required field: %s", key)
	}
	var (
		f   float64
		err error
	)
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n), "$")), 64)
	default:
		return 0, invalidInput(string(req.Tool), "argument must be a number: %s", key)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalidInput(string(req.Tool), "argument must be a number: %s", key)
	}
	return f, nil
}

func getInt(req Request, key string) (int, error) {
	f, err := getNumber(req, key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, invalidInput(string(req.Tool), "argument must be a whole number: %s", key)
	}
	return int(f), nil
}
