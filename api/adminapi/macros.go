package adminapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"github.com/sigvault/sigvault/internal/apierror"
	"github.com/sigvault/sigvault/macroconfig"
	"github.com/sigvault/sigvault/storage/model"
)

type macroConfigResponse struct {
	PageID      string                   `json:"pageId"`
	MacroID     string                   `json:"macroId"`
	Config      *macroconfig.MacroConfig `json:"config"`
	Fingerprint string                   `json:"fingerprint"`
}

func newMacroConfigResponse(pageID, macroID string, conf *macroconfig.MacroConfig) macroConfigResponse {
	return macroConfigResponse{
		PageID:      pageID,
		MacroID:     macroID,
		Config:      conf,
		Fingerprint: conf.Fingerprint(pageID).String(),
	}
}

// registerMacroConfigs wires the handlers the host platform uses to push the
// trusted macro configurations
func registerMacroConfigs(r fiber.Router, store model.MacroConfigStore) {
	g := r.Group("/pages/:pageID/macros/:macroID/config")

	g.Put(
		"/", func(c *fiber.Ctx) error {
			pageID, macroID := c.Params("pageID"), c.Params("macroID")
			body := c.Body()
			conf, err := macroconfig.Parse(body)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apierror.InvalidRequest(err.Error()))
			}
			// the raw value is stored so the normalization can change without
			// rewriting stored configurations
			raw := make(datatypes.JSON, len(body))
			copy(raw, body)
			if err = store.Set(c.UserContext(), pageID, macroID, raw); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			return c.JSON(newMacroConfigResponse(pageID, macroID, conf))
		},
	)

	g.Get(
		"/", func(c *fiber.Ctx) error {
			pageID, macroID := c.Params("pageID"), c.Params("macroID")
			conf, err := macroconfig.Loader{Store: store}.Load(c.UserContext(), pageID, macroID)
			if err != nil {
				var notFound model.NotFoundError
				if errors.As(err, &notFound) {
					return c.Status(fiber.StatusNotFound).JSON(apierror.NotFound(err.Error()))
				}
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			return c.JSON(newMacroConfigResponse(pageID, macroID, conf))
		},
	)

	g.Delete(
		"/", func(c *fiber.Ctx) error {
			if err := store.Delete(c.UserContext(), c.Params("pageID"), c.Params("macroID")); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
