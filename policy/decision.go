package policy

import "fmt"

// Code is the machine readable reason of a Decision
type Code string

// Decision codes
const (
	CodeMaxSignatures   Code = "max_signatures_reached"
	CodeAlreadySigned   Code = "already_signed"
	CodePetition        Code = "petition_mode"
	CodeNamedSigner     Code = "named_signer"
	CodeGroupMember     Code = "group_member"
	CodeViewPermission  Code = "view_permission"
	CodeEditPermission  Code = "edit_permission"
	CodeNoCriteria      Code = "no_matching_criteria"
	CodeCheckFailed     Code = "authorization_check_failed"
	// CodeContractDeleted is issued by the signing transaction, not by the
	// Engine, when the contract's page has been trashed
	CodeContractDeleted Code = "contract_deleted"
)

var messages = map[Code]string{
	CodeMaxSignatures:   "max signatures reached",
	CodeAlreadySigned:   "already signed",
	CodePetition:        "petition mode — no restrictions",
	CodeNamedSigner:     "named signer",
	CodeViewPermission:  "has view permission",
	CodeEditPermission:  "has edit permission",
	CodeNoCriteria:      "does not meet any authorization criteria",
	CodeCheckFailed:     "authorization check failed",
	CodeContractDeleted: "page has been deleted",
}

// Decision is the outcome of a policy evaluation
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Code    Code   `json:"code"`
	// Group is the matching group for CodeGroupMember
	Group string `json:"group,omitempty"`
}

func allow(code Code) Decision {
	return Decision{
		Allowed: true,
		Reason:  messages[code],
		Code:    code,
	}
}

func allowGroup(group string) Decision {
	return Decision{
		Allowed: true,
		Reason:  fmt.Sprintf("member of group %s", group),
		Code:    CodeGroupMember,
		Group:   group,
	}
}

func deny(code Code) Decision {
	return Decision{
		Allowed: false,
		Reason:  messages[code],
		Code:    code,
	}
}

// Denied returns the denial Decision for code
func Denied(code Code) Decision {
	return deny(code)
}
