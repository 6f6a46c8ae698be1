package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SijoOrganization/sijo-qcm-front/internal/model"
	"github.com/SijoOrganization/sijo-qcm-front/internal/response"
	"github.com/SijoOrganization/sijo-qcm-front/internal/service"
	"github.com/SijoOrganization/sijo-qcm-front/internal/validator"
)

// AuthHandler handles candidate authentication.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// CandidateLogin godoc
// POST /api/auth/candidate/login
// Exchanges an email and access code for a bearer token.
func (h *AuthHandler) CandidateLogin(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, candidateID, err := h.authService.Login(req.Email, req.AccessCode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.LoginResponse{Token: token, CandidateID: candidateID})
}
