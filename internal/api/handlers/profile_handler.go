package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/services"
	"github.com/hireloop/hireloop/internal/utils"
)

type ProfileHandler struct {
	svc services.ProfileService
}

func NewProfileHandler(svc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	FullName        *string `json:"full_name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Subject         *string `json:"subject,omitempty"`
	YearsExperience *int    `json:"years_experience,omitempty"`
	ResumeText      *string `json:"resume_text,omitempty"`

	Skills *[]string `json:"skills,omitempty"`

	// JSONB fields (raw)
	Education   *json.RawMessage `json:"education,omitempty"`
	Preferences *json.RawMessage `json:"preferences,omitempty"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.Update", "invalid request body", err))
		return
	}

	// Load existing (if not found => create new)
	existing, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			existing = &models.CandidateProfile{UserID: userID}
		} else {
			writeError(c, err)
			return
		}
	}

	if req.FullName != nil {
		existing.FullName = *req.FullName
	}
	if req.Email != nil {
		existing.Email = *req.Email
	}
	if req.Subject != nil {
		existing.Subject = *req.Subject
	}
	if req.YearsExperience != nil {
		existing.YearsExperience = *req.YearsExperience
	}
	if req.ResumeText != nil {
		existing.ResumeText = *req.ResumeText
	}
	if req.Skills != nil {
		existing.Skills = *req.Skills
	}
	if req.Education != nil {
		existing.Education = datatypes.JSON(*req.Education)
	}
	if req.Preferences != nil {
		existing.Preferences = datatypes.JSON(*req.Preferences)
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, existing)
}
