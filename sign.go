package sigvault

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sigvault/sigvault/identity"
	"github.com/sigvault/sigvault/signing"
	"github.com/sigvault/sigvault/storage/model"
)

type signRequest struct {
	PageID      string `json:"pageId"`
	MacroID     string `json:"macroId"`
	Fingerprint string `json:"fingerprint"`
}

type signResponse struct {
	Allowed     bool              `json:"allowed"`
	Message     string            `json:"message,omitempty"`
	Reason      string            `json:"reason"`
	Code        string            `json:"code"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Signatures  []model.Signature `json:"signatures,omitempty"`
	Contract    *model.Contract   `json:"contract,omitempty"`
}

type signaturesResponse struct {
	Signatures []model.Signature `json:"signatures"`
	Contract   *model.Contract   `json:"contract"`
}

func newSignaturesResponse(entity *model.SignatureEntity) signaturesResponse {
	res := signaturesResponse{Signatures: []model.Signature{}}
	if entity != nil {
		if entity.Signatures != nil {
			res.Signatures = entity.Signatures
		}
		contract := entity.Contract
		res.Contract = &contract
	}
	return res
}

func parseSignRequest(ctx *fiber.Ctx) (signing.Request, error) {
	var body signRequest
	if err := ctx.BodyParser(&body); err != nil {
		return signing.Request{}, signing.ValidationError("could not parse request body")
	}
	return signing.Request{
		AccountID:   identity.AccountID(ctx),
		PageID:      body.PageID,
		MacroID:     body.MacroID,
		Fingerprint: body.Fingerprint,
	}, nil
}

func registerSigningEndpoints(r fiber.Router, service *signing.Service, authenticated fiber.Handler) {
	r.Post(
		"/sign", authenticated, func(ctx *fiber.Ctx) error {
			req, err := parseSignRequest(ctx)
			if err != nil {
				return writeSigningError(ctx, err)
			}
			result, err := service.Sign(ctx.UserContext(), req)
			if err != nil {
				return writeSigningError(ctx, err)
			}
			res := signResponse{
				Allowed:     result.Decision.Allowed,
				Reason:      result.Decision.Reason,
				Code:        string(result.Decision.Code),
				Fingerprint: result.Fingerprint.String(),
			}
			if !result.Decision.Allowed {
				return ctx.Status(fiber.StatusForbidden).JSON(res)
			}
			full := newSignaturesResponse(result.Entity)
			res.Message = result.Message
			res.Signatures = full.Signatures
			res.Contract = full.Contract
			return ctx.JSON(res)
		},
	)

	r.Post(
		"/check", authenticated, func(ctx *fiber.Ctx) error {
			req, err := parseSignRequest(ctx)
			if err != nil {
				return writeSigningError(ctx, err)
			}
			result, err := service.Check(ctx.UserContext(), req)
			if err != nil {
				return writeSigningError(ctx, err)
			}
			return ctx.JSON(
				signResponse{
					Allowed:     result.Decision.Allowed,
					Reason:      result.Decision.Reason,
					Code:        string(result.Decision.Code),
					Fingerprint: result.Fingerprint.String(),
				},
			)
		},
	)

	r.Get(
		"/signatures/:fingerprint", authenticated, func(ctx *fiber.Ctx) error {
			entity, err := service.Signatures(ctx.UserContext(), ctx.Params("fingerprint"))
			if err != nil {
				return writeSigningError(ctx, err)
			}
			return ctx.JSON(newSignaturesResponse(entity))
		},
	)
}
