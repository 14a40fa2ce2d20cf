package adminapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sigvault/sigvault/internal/apierror"
	"github.com/sigvault/sigvault/storage/model"
)

func userStoreError(c *fiber.Ctx, err error) error {
	var notFound model.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(apierror.NotFound("user not found"))
	}
	var alreadyExists model.AlreadyExistsError
	if errors.As(err, &alreadyExists) {
		return c.Status(fiber.StatusConflict).JSON(apierror.InvalidRequest("user already exists"))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
}

// registerUsers wires handlers using a UsersStore abstraction.
func registerUsers(r fiber.Router, users model.UsersStore) {
	g := r.Group("/users")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			list, err := users.List()
			if err != nil {
				return userStoreError(c, err)
			}
			return c.JSON(list)
		},
	)

	type createReq struct {
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	g.Post(
		"/", func(c *fiber.Ctx) error {
			var req createReq
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apierror.InvalidRequest("invalid body"))
			}
			if req.Username == "" || req.Password == "" {
				return c.Status(fiber.StatusBadRequest).JSON(
					apierror.InvalidRequest("username and password are required"),
				)
			}
			u, err := users.Create(req.Username, req.Password, req.DisplayName)
			if err != nil {
				return userStoreError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(u)
		},
	)

	type updateReq struct {
		DisplayName *string `json:"displayName"`
		Password    *string `json:"password"`
		Disabled    *bool   `json:"disabled"`
	}
	g.Put(
		"/:username", func(c *fiber.Ctx) error {
			var req updateReq
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apierror.InvalidRequest("invalid body"))
			}
			u, err := users.Update(c.Params("username"), req.DisplayName, req.Password, req.Disabled)
			if err != nil {
				return userStoreError(c, err)
			}
			return c.JSON(u)
		},
	)

	g.Get(
		"/:username", func(c *fiber.Ctx) error {
			u, err := users.Get(c.Params("username"))
			if err != nil {
				return userStoreError(c, err)
			}
			return c.JSON(u)
		},
	)

	g.Delete(
		"/:username", func(c *fiber.Ctx) error {
			if err := users.Delete(c.Params("username")); err != nil {
				return userStoreError(c, err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
