package adminapi

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault/internal/apierror"
	"github.com/sigvault/sigvault/storage/model"
)

type countResponse struct {
	PageID string `json:"pageId,omitempty"`
	Count  int64  `json:"count"`
}

type purgeResponse struct {
	PageID       string `json:"pageId"`
	Contracts    int64  `json:"contracts"`
	MacroConfigs int64  `json:"macroConfigs"`
}

// registerPages wires the page lifecycle handlers. The host platform calls
// them when a page is trashed, restored or permanently deleted.
func registerPages(
	r fiber.Router, signatures model.SignatureStore, macroConfigs model.MacroConfigStore, retentionDays int,
) {
	g := r.Group("/pages/:pageID")

	g.Get(
		"/contracts", func(c *fiber.Ctx) error {
			list, err := signatures.ListByPage(c.UserContext(), c.Params("pageID"))
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			return c.JSON(list)
		},
	)

	g.Post(
		"/trash", func(c *fiber.Ctx) error {
			pageID := c.Params("pageID")
			n, err := signatures.SetDeleted(c.UserContext(), pageID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			log.WithFields(log.Fields{"page": pageID, "contracts": n}).Info("page trashed")
			return c.JSON(countResponse{PageID: pageID, Count: n})
		},
	)

	g.Post(
		"/restore", func(c *fiber.Ctx) error {
			pageID := c.Params("pageID")
			n, err := signatures.Restore(c.UserContext(), pageID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			log.WithFields(log.Fields{"page": pageID, "contracts": n}).Info("page restored")
			return c.JSON(countResponse{PageID: pageID, Count: n})
		},
	)

	g.Delete(
		"/", func(c *fiber.Ctx) error {
			pageID := c.Params("pageID")
			contracts, err := signatures.HardDelete(c.UserContext(), pageID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			configs, err := macroConfigs.DeletePage(c.UserContext(), pageID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			log.WithFields(
				log.Fields{
					"page":          pageID,
					"contracts":     contracts,
					"macro_configs": configs,
				},
			).Info("page purged")
			return c.JSON(
				purgeResponse{
					PageID:       pageID,
					Contracts:    contracts,
					MacroConfigs: configs,
				},
			)
		},
	)

	r.Post(
		"/cleanup", func(c *fiber.Ctx) error {
			days := retentionDays
			if raw := c.Query("retention_days"); raw != "" {
				var err error
				days, err = strconv.Atoi(raw)
				if err != nil || days < 0 || days > model.MaxRetentionDays {
					return c.Status(fiber.StatusBadRequest).JSON(
						apierror.InvalidRequest(
							fmt.Sprintf("retention_days must be an integer between 0 and %d", model.MaxRetentionDays),
						),
					)
				}
			}
			n, err := signatures.Cleanup(c.UserContext(), days)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(apierror.ServerError(err.Error()))
			}
			log.WithFields(log.Fields{"retention_days": days, "contracts": n}).Info("cleanup finished")
			return c.JSON(countResponse{Count: n})
		},
	)
}
