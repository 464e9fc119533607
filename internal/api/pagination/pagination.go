package pagination

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/careloop/appointment-engine/internal/domain/repositories"
	apperrors "github.com/careloop/appointment-engine/pkg/errors"
)

// DefaultPageSize bounds list responses when the client does not ask
// for a size.
const DefaultPageSize = 20

// MaxPageSize caps client-requested sizes.
const MaxPageSize = 100

// Envelope is the wire shape of every paginated list response.
type Envelope struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// EncodeCursor turns a page number into the opaque token handed to
// clients. Tokens are positional, not snapshots; concurrent writes may
// shift items between pages.
func EncodeCursor(page int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(page)))
}

// DecodeCursor reverses EncodeCursor. An empty token means page 1.
func DecodeCursor(token string) (int, error) {
	if token == "" {
		return 1, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid page token")
	}
	page, err := strconv.Atoi(string(raw))
	if err != nil || page < 1 {
		return 0, apperrors.NewValidationError("invalid page token")
	}
	return page, nil
}

// FromRequest reads the page token and size from query parameters.
func FromRequest(r *http.Request) (repositories.PageRequest, error) {
	page, err := DecodeCursor(r.URL.Query().Get("page"))
	if err != nil {
		return repositories.PageRequest{}, err
	}

	size := DefaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return repositories.PageRequest{}, apperrors.NewValidationError("invalid page_size")
		}
		if parsed > MaxPageSize {
			parsed = MaxPageSize
		}
		size = parsed
	}

	return repositories.PageRequest{Number: page, Size: size}, nil
}

// Wrap builds the response envelope, issuing next/previous links that
// preserve the request's path and query.
func Wrap(r *http.Request, page repositories.PageRequest, total int, results interface{}) Envelope {
	env := Envelope{Count: total, Results: results}

	if page.Number > 1 {
		prev := pageLink(r, page, page.Number-1)
		env.Previous = &prev
	}
	if page.Number*page.Size < total {
		next := pageLink(r, page, page.Number+1)
		env.Next = &next
	}
	return env
}

func pageLink(r *http.Request, page repositories.PageRequest, target int) string {
	q := url.Values{}
	for key, values := range r.URL.Query() {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	q.Set("page", EncodeCursor(target))
	if page.Size != DefaultPageSize {
		q.Set("page_size", strconv.Itoa(page.Size))
	}
	return fmt.Sprintf("%s?%s", r.URL.Path, q.Encode())
}
