package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin forms post numbers and booleans either as JSON literals or as
// strings, and use "" for "not set". These types accept both.

// FlexFloat is an optional number; "" and null leave it unset.
type FlexFloat struct {
	Value *float64
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	f.Value = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, ok, err := parseOptionalFloat(s)
		if err != nil {
			return err
		}
		if ok {
			f.Value = &v
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("expected a number, got %s", b)
	}
	if !finite(v) {
		return fmt.Errorf("invalid number %s", b)
	}
	f.Value = &v
	return nil
}

// FlexBool is true only for true or "true".
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	*f = FlexBool(s == "true")
	return nil
}

// FlexTime accepts RFC 3339 timestamps as well as the date and
// date-time values produced by HTML date inputs.
type FlexTime struct {
	Value *time.Time
}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	f.Value = nil
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("expected a date string, got %s", b)
	}
	t, ok, err := parseOptionalTime(s)
	if err != nil {
		return err
	}
	if ok {
		f.Value = &t
	}
	return nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseOptionalTime(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", s)
}

func parseOptionalFloat(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false, fmt.Errorf("invalid number %q", s)
	}
	return v, true, nil
}

// finite rejects the NaN and Inf spellings ParseFloat accepts.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// formField reads a multipart field, reporting whether it was sent at all.
func formField(c *gin.Context, key string) (string, bool) {
	v, ok := c.GetPostForm(key)
	return strings.TrimSpace(v), ok
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(strings.TrimSpace(id))
}
