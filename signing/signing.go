// Package signing implements the signing transaction: it loads the trusted
// macro configuration, evaluates the signing policy against the current
// signatures and appends a signature if the policy allows it.
package signing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/sigvault/sigvault/events"
	"github.com/sigvault/sigvault/fingerprint"
	"github.com/sigvault/sigvault/macroconfig"
	"github.com/sigvault/sigvault/policy"
	"github.com/sigvault/sigvault/storage/model"
)

// SignedMessage is returned together with a successful signature
const SignedMessage = "signature recorded"

// ErrNoIdentity is returned if a request carries no account id
var ErrNoIdentity = errors.New("no authenticated identity")

// ValidationError signals a malformed request
type ValidationError string

// Error implements the error interface
func (e ValidationError) Error() string {
	return string(e)
}

// ConfigLoader returns the trusted configuration of a macro
type ConfigLoader interface {
	Load(ctx context.Context, pageID, macroID string) (*macroconfig.MacroConfig, error)
}

// Request is a request to sign (or check) the content of a macro
type Request struct {
	// AccountID is the authenticated identity; it never comes from a
	// request body
	AccountID string
	PageID    string
	MacroID   string
	// Fingerprint is the fingerprint the client computed; optional
	Fingerprint string
}

func (r Request) validate() error {
	if strings.TrimSpace(r.AccountID) == "" {
		return ErrNoIdentity
	}
	if strings.TrimSpace(r.PageID) == "" {
		return ValidationError("pageId is required")
	}
	if strings.TrimSpace(r.MacroID) == "" {
		return ValidationError("macroId is required")
	}
	if r.Fingerprint != "" && !fingerprint.IsValid(r.Fingerprint) {
		return ValidationError("malformed fingerprint")
	}
	return nil
}

// Result is the outcome of a signing request
type Result struct {
	Decision    policy.Decision
	Fingerprint fingerprint.Fingerprint
	// Entity is the state of the contract after the request; nil if nobody
	// signed yet
	Entity  *model.SignatureEntity
	Message string
}

// Service runs signing transactions
type Service struct {
	Store     model.SignatureStore
	Configs   ConfigLoader
	Engine    *policy.Engine
	Publisher events.Publisher
	Metrics   *Metrics
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// prepare validates req, loads the trusted configuration and derives the
// fingerprint from it
func (s *Service) prepare(ctx context.Context, req Request) (*macroconfig.MacroConfig, fingerprint.Fingerprint, error) {
	if err := req.validate(); err != nil {
		return nil, "", err
	}
	conf, err := s.Configs.Load(ctx, req.PageID, req.MacroID)
	if err != nil {
		return nil, "", err
	}
	fp := conf.Fingerprint(req.PageID)
	if req.Fingerprint != "" && !fp.Equal(fingerprint.Fingerprint(req.Fingerprint)) {
		return nil, "", ValidationError("content has changed")
	}
	return conf, fp, nil
}

// evaluate loads the current signatures of fp and runs the policy
func (s *Service) evaluate(
	ctx context.Context, req Request, conf *macroconfig.MacroConfig, fp fingerprint.Fingerprint,
) (policy.Decision, *model.SignatureEntity, error) {
	entity, err := s.Store.GetSignature(ctx, fp)
	if err != nil {
		return policy.Decision{}, nil, err
	}
	if entity != nil && entity.Contract.IsDeleted() {
		return policy.Denied(policy.CodeContractDeleted), entity, nil
	}
	return s.Engine.CanUserSign(ctx, req.AccountID, req.PageID, conf.SignerConfiguration, entity), entity, nil
}

// Sign authorizes req and records the signature. Denials are reported in the
// Result, not as an error; errors are reserved for invalid requests
// (ValidationError, ErrNoIdentity), unknown macros (model.NotFoundError) and
// storage failures.
func (s *Service) Sign(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	defer s.Metrics.observeDuration("sign", started)

	res, err := s.sign(ctx, req)
	if err != nil {
		s.Metrics.observeError()
		return nil, err
	}
	s.Metrics.observeDecision(res.Decision)
	return res, nil
}

func (s *Service) sign(ctx context.Context, req Request) (*Result, error) {
	conf, fp, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	decision, entity, err := s.evaluate(ctx, req, conf, fp)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Decision:    decision,
		Fingerprint: fp,
		Entity:      entity,
	}
	if !decision.Allowed {
		return res, nil
	}

	entity, err = s.Store.PutSignature(ctx, fp, req.PageID, req.AccountID)
	if err != nil {
		var alreadySigned model.AlreadySignedError
		if errors.As(err, &alreadySigned) {
			log.WithFields(
				log.Fields{
					"account": req.AccountID,
					"hash":    fp,
				},
			).Debug("concurrent duplicate signature rejected by storage")
			res.Decision = policy.Denied(policy.CodeAlreadySigned)
			res.Entity, err = s.Store.GetSignature(ctx, fp)
			if err != nil {
				return nil, err
			}
			return res, nil
		}
		return nil, err
	}
	res.Entity = entity
	res.Message = SignedMessage
	log.WithFields(
		log.Fields{
			"account": req.AccountID,
			"page":    req.PageID,
			"hash":    fp,
			"reason":  decision.Reason,
		},
	).Info("signature recorded")

	events.Dispatch(
		context.WithoutCancel(ctx), s.Publisher,
		events.NewSignatureCreated(fp.String(), req.PageID, req.AccountID, entity.Count(), s.now()),
	)
	return res, nil
}

// Check evaluates the policy for req exactly as Sign does, without writing
// anything
func (s *Service) Check(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	defer s.Metrics.observeDuration("check", started)

	conf, fp, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	decision, entity, err := s.evaluate(ctx, req, conf, fp)
	if err != nil {
		return nil, err
	}
	return &Result{
		Decision:    decision,
		Fingerprint: fp,
		Entity:      entity,
	}, nil
}

// Signatures returns the contract and signatures for a client supplied
// fingerprint. Unknown fingerprints yield nil without an error.
func (s *Service) Signatures(ctx context.Context, raw string) (*model.SignatureEntity, error) {
	fp, ok := fingerprint.Parse(raw)
	if !ok {
		return nil, ValidationError(fmt.Sprintf("malformed fingerprint '%s'", raw))
	}
	return s.Store.GetSignature(ctx, fp)
}
