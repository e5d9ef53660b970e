package blogs

import (
	"net/http"
	"strings"

	"github.com/angelviera/shoplane-backend/api/middleware"
	"github.com/angelviera/shoplane-backend/api/responses"
	"github.com/angelviera/shoplane-backend/api/validators"
	internalblogs "github.com/angelviera/shoplane-backend/internal/blogs"
	internalcomments "github.com/angelviera/shoplane-backend/internal/comments"
	"github.com/angelviera/shoplane-backend/pkg/enums"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"github.com/angelviera/shoplane-backend/pkg/pagination"
)

// List serves published posts, newest first.
func List(svc internalblogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Get serves one post.
func Get(svc internalblogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogID, err := validators.UUIDParam(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blog, err := svc.Get(r.Context(), blogID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

// Create publishes a post authored by the caller.
func Create(svc internalblogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body internalblogs.BlogInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		authorID := middleware.UserIDFromContext(r.Context())
		blog, err := svc.Create(r.Context(), authorID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, blog)
	}
}

// Update rewrites one post.
func Update(svc internalblogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogID, err := validators.UUIDParam(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body internalblogs.BlogInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blog, err := svc.Update(r.Context(), blogID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, blog)
	}
}

// Delete removes one post.
func Delete(svc internalblogs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogID, err := validators.UUIDParam(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), blogID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "post removed"})
	}
}

// ListComments serves the approved comments under one post. Admin callers see
// every moderation state.
func ListComments(svc internalcomments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogID, err := validators.UUIDParam(r, "blogID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := middleware.RoleFromContext(r.Context())
		page, err := svc.ListForParent(r.Context(), enums.CommentParentBlog, blogID, role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
