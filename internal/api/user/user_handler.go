package user

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-user-directory/internal/api"
	"github.com/FACorreiaa/go-user-directory/internal/api/auth"
	"github.com/FACorreiaa/go-user-directory/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListUsers(w http.ResponseWriter, r *http.Request)
	CreateUser(w http.ResponseWriter, r *http.Request)
	UpdateUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
	UpdateUserStatus(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// requesterID pulls the authenticated caller's id out of the context.
func requesterID(r *http.Request) (uuid.UUID, error) {
	idStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || idStr == "" {
		return uuid.Nil, fmt.Errorf("%w: authentication required", types.ErrInvalidToken)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed user id in token", types.ErrInvalidToken)
	}
	return id, nil
}

func targetID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id", types.ErrValidation)
	}
	return id, nil
}

// ListUsers godoc
// @Summary      List Users
// @Description  Lists every user in the directory. Admin or SuperAdmin only.
// @Tags         User
// @Produce      json
// @Success      200 {array} types.UserResponse "Users"
// @Failure      401 {object} api.Envelope "Unauthorized"
// @Failure      403 {object} api.Envelope "Forbidden"
// @Security     BearerAuth
// @Router       /users [get]
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListUsers"))

	reqID, err := requesterID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	users, err := h.userService.ListUsers(ctx, reqID)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, users, "Users retrieved")
}

// CreateUser godoc
// @Summary      Create User
// @Description  Creates a user with an explicit role. Admin or SuperAdmin only.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        body body types.CreateUserRequest true "User Parameters"
// @Success      201 {object} types.UserResponse "Created User"
// @Failure      400 {object} api.Envelope "Invalid Input"
// @Failure      403 {object} api.Envelope "Forbidden"
// @Failure      409 {object} api.Envelope "Email Already Registered"
// @Security     BearerAuth
// @Router       /users [post]
func (h *HandlerImpl) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateUser"))

	reqID, err := requesterID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	var req types.CreateUserRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if err := validateCreateUserRequest(req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	created, err := h.userService.CreateUser(ctx, reqID, req)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusCreated, created, "User created")
}

// UpdateUser godoc
// @Summary      Update User
// @Description  Updates a user's profile fields or role. SuperAdmin only.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        body body types.UpdateUserParams true "Update Parameters"
// @Success      200 {object} types.UserResponse "Updated User"
// @Failure      400 {object} api.Envelope "Invalid Input"
// @Failure      403 {object} api.Envelope "Forbidden"
// @Failure      404 {object} api.Envelope "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *HandlerImpl) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateUser"))

	reqID, err := requesterID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	tgtID, err := targetID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	var params types.UpdateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	if err := validateUpdateUserParams(params); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	updated, err := h.userService.UpdateUser(ctx, reqID, tgtID, params)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, updated, "User updated")
}

// DeleteUser godoc
// @Summary      Delete User
// @Description  Deletes a user. SuperAdmin only; self-deletion is rejected.
// @Tags         User
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} api.Envelope "User Deleted"
// @Failure      400 {object} api.Envelope "Cannot Delete Self"
// @Failure      403 {object} api.Envelope "Forbidden"
// @Failure      404 {object} api.Envelope "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *HandlerImpl) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteUser"))

	reqID, err := requesterID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	tgtID, err := targetID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	if err := h.userService.DeleteUser(ctx, reqID, tgtID); err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, nil, "User deleted")
}

// UpdateUserStatus godoc
// @Summary      Update User Status
// @Description  Suspends or reactivates a user. Admin or SuperAdmin only.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        body body types.UpdateUserStatusRequest true "Status Parameters"
// @Success      200 {object} types.UserResponse "Updated User"
// @Failure      400 {object} api.Envelope "Invalid Status"
// @Failure      403 {object} api.Envelope "Forbidden"
// @Failure      404 {object} api.Envelope "User Not Found"
// @Security     BearerAuth
// @Router       /users/{id}/status [patch]
func (h *HandlerImpl) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateUserStatus"))

	reqID, err := requesterID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	tgtID, err := targetID(r)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	var req types.UpdateUserStatusRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	status, err := types.ParseUserStatus(req.Status)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	updated, err := h.userService.UpdateUserStatus(ctx, reqID, tgtID, status)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, updated, "User status updated")
}

func validateCreateUserRequest(req types.CreateUserRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", types.ErrValidation)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", types.ErrValidation)
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", types.ErrValidation)
	}
	if req.Phone != nil && len(*req.Phone) < 10 {
		return fmt.Errorf("%w: phone must be at least 10 characters", types.ErrValidation)
	}
	if _, err := types.ParseRole(req.Role); err != nil {
		return err
	}
	return nil
}

func validateUpdateUserParams(params types.UpdateUserParams) error {
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", types.ErrValidation)
	}
	if params.Email != nil {
		if _, err := mail.ParseAddress(*params.Email); err != nil {
			return fmt.Errorf("%w: invalid email address", types.ErrValidation)
		}
	}
	if params.Phone != nil && len(*params.Phone) < 10 {
		return fmt.Errorf("%w: phone must be at least 10 characters", types.ErrValidation)
	}
	if params.Role != nil {
		if _, err := types.ParseRole(string(*params.Role)); err != nil {
			return err
		}
	}
	return nil
}
