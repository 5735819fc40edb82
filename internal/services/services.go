package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// Endpoint is the path of a backend operation.
type Endpoint string

const (
	EndpointDialogue   Endpoint = "/dialogue"
	EndpointCheck      Endpoint = "/check"
	EndpointConfirm    Endpoint = "/confirm"
	EndpointCourseList Endpoint = "/courselist"
	EndpointStudy      Endpoint = "/study"
	EndpointDelete     Endpoint = "/delete"
)

// Endpoints lists every backend endpoint.
var Endpoints = []Endpoint{
	EndpointDialogue, EndpointCheck, EndpointConfirm,
	EndpointCourseList, EndpointStudy, EndpointDelete,
}

// ParseEndpoint accepts an endpoint name with or without its leading slash.
func ParseEndpoint(s string) (Endpoint, bool) {
	name := "/" + strings.TrimPrefix(strings.TrimSpace(s), "/")
	for _, e := range Endpoints {
		if string(e) == name {
			return e, true
		}
	}
	return "", false
}

// Request and response field names.
const (
	FieldUserID        = "userID"
	FieldData          = "data"
	FieldTitle         = "title"
	FieldSSID          = "ssid"
	FieldCourseID      = "courseID"
	FieldOutlineItemID = "outlineitemID"

	FieldNeedConfirm    = "need_confirm"
	FieldConfirmStr     = "confirm_str"
	FieldNewMessage     = "new_message"
	FieldCourseTitle    = "course_title"
	FieldCheckCourseID  = "course_id"
	FieldOutlineContent = "outline_content"
	FieldContent        = "content"
	FieldChapters       = "chapters"
	FieldStatus         = "status"
)

// Transport performs a JSON POST against the backend and returns the decoded response object.
type Transport interface {
	Send(ctx context.Context, endpoint Endpoint, payload map[string]any) (map[string]any, error)
}

// TransportFunc adapts a function to [Transport].
type TransportFunc func(ctx context.Context, endpoint Endpoint, payload map[string]any) (map[string]any, error)

func (f TransportFunc) Send(ctx context.Context, endpoint Endpoint, payload map[string]any) (map[string]any, error) {
	return f(ctx, endpoint, payload)
}

// String returns m[key] when it is a string.
func String(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

// Bool returns m[key] when it is a bool.
func Bool(m map[string]any, key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}

// Int returns m[key] as an int. JSON numbers, [json.Number] and numeric strings are accepted;
// fractional values are not.
func Int(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// Object returns m[key] when it is a JSON object.
func Object(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

// Array returns m[key] when it is a JSON array.
func Array(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key].([]any)
	return v, ok
}
