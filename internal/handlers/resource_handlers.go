package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/models"
)

type resourceRequest struct {
	BandID int64   `json:"bandId"`
	Title  *string `json:"title"`
	Type   *string `json:"type"`
	URL    *string `json:"url"`
	Notes  *string `json:"notes"`
}

func (req *resourceRequest) apply(res *models.Resource) {
	if req.Title != nil {
		res.Title = strings.TrimSpace(*req.Title)
	}
	if req.Type != nil {
		res.Type = strings.ToUpper(strings.TrimSpace(*req.Type))
	}
	if req.URL != nil {
		res.URL = strings.TrimSpace(*req.URL)
	}
	if req.Notes != nil {
		res.Notes = *req.Notes
	}
}

func validateResource(res *models.Resource) error {
	if res.Title == "" {
		return BadRequest("Title is required")
	}
	if !models.ValidResourceType(res.Type) {
		return BadRequest("Invalid resource type")
	}
	if res.Type == models.ResourceLink && res.URL == "" {
		return BadRequest("A link resource needs a url")
	}
	if res.URL != "" {
		u, err := url.ParseRequestURI(res.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return BadRequest("url must be an absolute http or https URL")
		}
	}
	return nil
}

func loadResource(r *http.Request, env *Env) (*models.Resource, *models.BandMember, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, nil, err
	}
	res, err := database.GetResourceByID(r.Context(), env.DB, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, NotFound("Resource not found")
	}
	if err != nil {
		return nil, nil, err
	}
	member, err := requireMember(r.Context(), env.DB, res.BandID, UserIDFromContext(r.Context()))
	if err != nil {
		return nil, nil, err
	}
	return res, member, nil
}

// ListResources returns resources of the caller's bands, filtered by ?bandId and ?type.
func ListResources(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := queryID(r, "bandId")
		if err != nil {
			return err
		}
		resourceType := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type")))
		if resourceType != "" && !models.ValidResourceType(resourceType) {
			return BadRequest("Invalid type parameter")
		}

		userID := UserIDFromContext(r.Context())
		if bandID != 0 {
			if _, err = requireMember(r.Context(), env.DB, bandID, userID); err != nil {
				return err
			}
		}
		resources, err := database.ListResourcesForUser(r.Context(), env.DB, userID, bandID, resourceType)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, resources)
		return nil
	}
}

func CreateResource(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req resourceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.BandID <= 0 {
			return BadRequest("bandId is required")
		}

		res := &models.Resource{BandID: req.BandID, Type: models.ResourceLink, CreatedBy: UserIDFromContext(r.Context())}
		req.apply(res)
		if err := validateResource(res); err != nil {
			return err
		}
		if _, err := requireMember(r.Context(), env.DB, req.BandID, res.CreatedBy); err != nil {
			return err
		}

		created, err := database.CreateResource(r.Context(), env.DB, res)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, created)
		return nil
	}
}

func GetResource(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		res, _, err := loadResource(r, env)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, res)
		return nil
	}
}

// UpdateResource is allowed for the creator or a band admin.
func UpdateResource(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		res, member, err := loadResource(r, env)
		if err != nil {
			return err
		}
		if err = ownerOrAdmin(member, res.CreatedBy); err != nil {
			return err
		}

		var req resourceRequest
		if err = decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.BandID != 0 && req.BandID != res.BandID {
			return BadRequest("A resource cannot be moved to another band")
		}
		req.apply(res)
		if err = validateResource(res); err != nil {
			return err
		}

		updated, err := database.UpdateResource(r.Context(), env.DB, res)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, updated)
		return nil
	}
}

// DeleteResource removes a resource. Setlist items that pointed at it keep
// their title and lose the link.
func DeleteResource(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		res, member, err := loadResource(r, env)
		if err != nil {
			return err
		}
		if err = ownerOrAdmin(member, res.CreatedBy); err != nil {
			return err
		}
		if err = database.DeleteResource(r.Context(), env.DB, res.ID); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Resource deleted"})
		return nil
	}
}
