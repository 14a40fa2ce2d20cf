// Package policy decides whether an account may add a signature to a
// contract.
//
// Rules are evaluated in a fixed order and the first matching rule wins:
//
//  1. max signatures reached             -> deny
//  2. account already signed             -> deny
//  3. petition mode (no restrictions)    -> allow
//  4. named signer                       -> allow
//  5. member of a signer group           -> allow
//  6. view permission (inheritViewers)   -> allow
//  7. edit permission (inheritEditors)   -> allow
//  8. otherwise                          -> deny
//
// Any failure while resolving groups or permissions results in a denial.
package policy

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"tideland.dev/go/slices"

	"github.com/sigvault/sigvault/storage/model"
)

// Operation is a page permission operation
type Operation string

// Page permission operations
const (
	OperationView Operation = "VIEW"
	OperationEdit Operation = "EDIT"
)

// Resolver answers identity questions against the host platform. Both
// methods are called per decision and must not cache across requests.
type Resolver interface {
	// Groups returns the ids of the groups accountID currently belongs to
	Groups(ctx context.Context, accountID string) ([]string, error)
	// PagePermission reports whether accountID holds the permission op on
	// pageID
	PagePermission(ctx context.Context, pageID, accountID string, op Operation) (bool, error)
}

// SignerConfiguration defines who may sign a macro's content. It must only
// ever come from the trusted host platform, never from a client.
type SignerConfiguration struct {
	Signers        []string `json:"signers"`
	SignerGroups   []string `json:"signerGroups"`
	InheritViewers bool     `json:"inheritViewers"`
	InheritEditors bool     `json:"inheritEditors"`
	// MaxSignatures caps the number of signatures; nil means unlimited and
	// values <= 0 block signing entirely
	MaxSignatures *int `json:"maxSignatures,omitempty"`
}

// IsPetition reports whether the configuration has no restrictions at all
func (c SignerConfiguration) IsPetition() bool {
	return len(c.Signers) == 0 && len(c.SignerGroups) == 0 && !c.InheritViewers && !c.InheritEditors
}

// Engine evaluates SignerConfigurations
type Engine struct {
	resolver Resolver
}

// NewEngine creates a new Engine that uses the passed Resolver
func NewEngine(resolver Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// CanUserSign evaluates config for accountID on pageID given the current
// signatures of the contract (entity may be nil if nobody signed yet). It
// never returns an error; failures are reported as a denial with
// CodeCheckFailed.
func (e *Engine) CanUserSign(
	ctx context.Context, accountID, pageID string, config SignerConfiguration, entity *model.SignatureEntity,
) Decision {
	d := e.evaluate(ctx, accountID, pageID, config, entity)
	log.WithFields(
		log.Fields{
			"account": accountID,
			"page":    pageID,
			"allowed": d.Allowed,
			"code":    d.Code,
		},
	).Debug("evaluated signing policy")
	return d
}

func (e *Engine) evaluate(
	ctx context.Context, accountID, pageID string, config SignerConfiguration, entity *model.SignatureEntity,
) Decision {
	if config.MaxSignatures != nil && entity.Count() >= *config.MaxSignatures {
		return deny(CodeMaxSignatures)
	}
	if entity.HasSigned(accountID) {
		return deny(CodeAlreadySigned)
	}
	if config.IsPetition() {
		return allow(CodePetition)
	}
	if slices.IsMember(accountID, config.Signers) {
		return allow(CodeNamedSigner)
	}
	if len(config.SignerGroups) > 0 {
		d, ok := e.checkGroups(ctx, accountID, config.SignerGroups)
		if ok {
			return d
		}
	}
	if config.InheritViewers {
		d, ok := e.checkPermission(ctx, pageID, accountID, OperationView)
		if ok {
			return d
		}
	}
	if config.InheritEditors {
		d, ok := e.checkPermission(ctx, pageID, accountID, OperationEdit)
		if ok {
			return d
		}
	}
	return deny(CodeNoCriteria)
}

// checkGroups returns a final decision and true if the account is a member
// of one of the configured groups or if group resolution failed
func (e *Engine) checkGroups(ctx context.Context, accountID string, groups []string) (Decision, bool) {
	memberships, err := e.resolver.Groups(ctx, accountID)
	if err != nil {
		log.WithError(err).WithField("account", accountID).Error("could not resolve group memberships")
		return deny(CodeCheckFailed), true
	}
	for _, g := range groups {
		id := strings.TrimSpace(g)
		if id == "" {
			log.WithField("group", g).Warn("skipping invalid signer group id")
			continue
		}
		if slices.IsMember(id, memberships) {
			return allowGroup(id), true
		}
	}
	return Decision{}, false
}

func (e *Engine) checkPermission(ctx context.Context, pageID, accountID string, op Operation) (Decision, bool) {
	permitted, err := e.resolver.PagePermission(ctx, pageID, accountID, op)
	if err != nil {
		log.WithError(err).WithFields(
			log.Fields{
				"account":   accountID,
				"page":      pageID,
				"operation": op,
			},
		).Error("could not resolve page permission")
		return deny(CodeCheckFailed), true
	}
	if !permitted {
		return Decision{}, false
	}
	if op == OperationView {
		return allow(CodeViewPermission), true
	}
	return allow(CodeEditPermission), true
}
