package httpapi

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/arawak/scribe/internal/store"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid json")

// postPayload accepts any JSON value per field so type mistakes can be
// reported per field instead of as a decode failure.
type postPayload struct {
	Title    any `json:"title"`
	Content  any `json:"content"`
	Category any `json:"category"`
	Tags     any `json:"tags"`
}

// decodePostInput reads a create/update body. Wrong field types produce a
// *store.ValidationError; non-string tag entries are dropped.
func decodePostInput(body io.Reader) (store.PostInput, error) {
	var payload *postPayload
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&payload); err != nil || payload == nil {
		return store.PostInput{}, errInvalidJSON
	}

	var in store.PostInput
	fields := map[string]string{}

	if v, ok := payload.Title.(string); ok {
		in.Title = v
	} else if payload.Title != nil {
		fields["title"] = "must be a string"
	}
	if v, ok := payload.Content.(string); ok {
		in.Content = v
	} else if payload.Content != nil {
		fields["content"] = "must be a string"
	}

	switch v := payload.Category.(type) {
	case nil:
	case string:
		in.Category = &v
	default:
		fields["category"] = "must be a string"
	}

	switch v := payload.Tags.(type) {
	case nil:
	case []any:
		in.Tags = make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				in.Tags = append(in.Tags, s)
			}
		}
	default:
		fields["tags"] = "must be a list"
	}

	if len(fields) > 0 {
		return store.PostInput{}, &store.ValidationError{Fields: fields}
	}
	return in, nil
}
