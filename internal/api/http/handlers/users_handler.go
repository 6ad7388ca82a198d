package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

const (
	defaultListFrom  = 0
	defaultListCount = 10
)

// UsersHandler exposes the identity endpoints.
type UsersHandler struct {
	auth   *service.AuthService
	entity repository.Entity
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, entity repository.Entity) *UsersHandler {
	return &UsersHandler{auth: authService, entity: entity}
}

// SignUp handles POST /auth/users/sign_up.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username, email, password required")
	}
	if req.Password != req.RePassword {
		return fiber.NewError(http.StatusBadRequest, "passwords do not match")
	}

	user, err := h.auth.SignUp(c.UserContext(), req.Username, req.Email, req.Password, req.Attributes)
	if err != nil {
		return err
	}

	c.Location("/auth/users/user/" + strconv.FormatInt(user.ID, 10))
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": user})
}

// SignIn handles POST /auth/users/sign_in.
func (h *UsersHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	user, token, err := h.auth.SignIn(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return err
	}

	return c.JSON(fiber.Map{"data": fiber.Map{
		"user": user,
		"auth": dto.AuthResponse{Token: token},
	}})
}

// SignOut handles POST /auth/users/sign_out.
func (h *UsersHandler) SignOut(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.SignOut(c.UserContext(), principal.Token); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetUser handles GET /auth/users/user/:id. Callers see themselves; admins
// see anyone.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid user id")
	}

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.User.ID == id {
		return c.JSON(fiber.Map{"data": principal.User})
	}
	if principal.User.Role != domain.RoleAdmins {
		return apperrors.NewForbidden(domain.ErrAccessDenied.Error())
	}

	user, err := h.entity.GetUserByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// List handles GET /auth/users/list?from=&count= (admins only, enforced by
// the route guard).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	from := int64(c.QueryInt("from", defaultListFrom))
	count := int64(c.QueryInt("count", defaultListCount))

	users, err := h.entity.ListUsers(c.UserContext(), from, count)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": users})
}

// Enable handles POST /auth/users/user/:name/enable.
func (h *UsersHandler) Enable(c *fiber.Ctx) error {
	user, err := h.entity.EnableUser(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// Disable handles POST /auth/users/user/:name/disable.
func (h *UsersHandler) Disable(c *fiber.Ctx) error {
	user, err := h.entity.DisableUser(c.UserContext(), c.Params("name"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// SetRole handles PUT /auth/users/user/:name/role.
func (h *UsersHandler) SetRole(c *fiber.Ctx) error {
	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Role == "" {
		return fiber.NewError(http.StatusBadRequest, "role required")
	}

	user, err := h.entity.AddUserRole(c.UserContext(), c.Params("name"), domain.ParseRole(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}

// Delete handles DELETE /auth/users/user/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid user id")
	}
	if err := h.entity.DeleteUser(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
