package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Types and parameter binding mirror api/openapi.yaml.

type PostId = int64

type Post struct {
	Id        int64              `json:"id"`
	Title     string             `json:"title"`
	Content   string             `json:"content"`
	Category  *string            `json:"category"`
	Tags      []string           `json:"tags"`
	CreatedAt openapi_types.Date `json:"createdAt"`
	UpdatedAt openapi_types.Date `json:"updatedAt"`
}

type Tag struct {
	Name string `json:"name"`
}

type TagListResponse struct {
	Items []Tag `json:"items"`
}

type HealthStatus string

const Ok HealthStatus = "ok"

type Health struct {
	Status HealthStatus `json:"status"`
}

type Error struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details *map[string]any `json:"details,omitempty"`
}

type ListPostsParams struct {
	Term *string `form:"term,omitempty" json:"term,omitempty"`
}

type ListTagsParams struct {
	Prefix *string `form:"prefix,omitempty" json:"prefix,omitempty"`
}

type ServerInterface interface {
	GetHealthz(w http.ResponseWriter, r *http.Request)
	GetReadyz(w http.ResponseWriter, r *http.Request)
	ListPosts(w http.ResponseWriter, r *http.Request, params ListPostsParams)
	CreatePost(w http.ResponseWriter, r *http.Request)
	GetPost(w http.ResponseWriter, r *http.Request, id PostId)
	UpdatePost(w http.ResponseWriter, r *http.Request, id PostId)
	DeletePost(w http.ResponseWriter, r *http.Request, id PostId)
	ListTags(w http.ResponseWriter, r *http.Request, params ListTagsParams)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper binds path and query parameters before handing the
// request to the Handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) GetHealthz(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetHealthz(w, r)
}

func (siw *ServerInterfaceWrapper) GetReadyz(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetReadyz(w, r)
}

func (siw *ServerInterfaceWrapper) ListPosts(w http.ResponseWriter, r *http.Request) {
	var params ListPostsParams
	if err := runtime.BindQueryParameter("form", true, false, "term", r.URL.Query(), &params.Term); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "term", Err: err})
		return
	}
	siw.Handler.ListPosts(w, r, params)
}

func (siw *ServerInterfaceWrapper) CreatePost(w http.ResponseWriter, r *http.Request) {
	siw.Handler.CreatePost(w, r)
}

func (siw *ServerInterfaceWrapper) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindPostID(w, r)
	if !ok {
		return
	}
	siw.Handler.GetPost(w, r, id)
}

func (siw *ServerInterfaceWrapper) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindPostID(w, r)
	if !ok {
		return
	}
	siw.Handler.UpdatePost(w, r, id)
}

func (siw *ServerInterfaceWrapper) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindPostID(w, r)
	if !ok {
		return
	}
	siw.Handler.DeletePost(w, r, id)
}

func (siw *ServerInterfaceWrapper) ListTags(w http.ResponseWriter, r *http.Request) {
	var params ListTagsParams
	if err := runtime.BindQueryParameter("form", true, false, "prefix", r.URL.Query(), &params.Prefix); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "prefix", Err: err})
		return
	}
	siw.Handler.ListTags(w, r, params)
}

func (siw *ServerInterfaceWrapper) bindPostID(w http.ResponseWriter, r *http.Request) (PostId, bool) {
	var id PostId
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return 0, false
	}
	return id, true
}
