package models

import (
	"errors"
	"time"
)

// OperatorType names a payment provider integration.
type OperatorType string

const (
	OperatorLvlupSMS   OperatorType = "lvlup_sms"
	OperatorLvlupOther OperatorType = "lvlup_other"
	OperatorMicroSMS   OperatorType = "microsms_sms"
)

// OperatorTypes lists every supported type.
var OperatorTypes = []OperatorType{OperatorLvlupSMS, OperatorLvlupOther, OperatorMicroSMS}

// Valid reports whether t is a supported operator type.
func (t OperatorType) Valid() bool {
	for _, known := range OperatorTypes {
		if t == known {
			return true
		}
	}
	return false
}

var (
	ErrUnknownOperatorType  = errors.New("unknown operator type")
	ErrMissingCredentials   = errors.New("missing operator credentials")
	ErrMismatchedCredential = errors.New("credentials do not match operator type")
)

// PaymentOperator is a payment provider configured for one server.
// At most one operator of each type exists per server.
type PaymentOperator struct {
	ID          string              `json:"id" gorm:"primaryKey"`
	ServerID    string              `json:"server_id" gorm:"not null;uniqueIndex:idx_server_operator_type"`
	Type        OperatorType        `json:"operator_type" gorm:"type:varchar(20);not null;uniqueIndex:idx_server_operator_type"`
	Name        string              `json:"operator_name" gorm:"not null"`
	Credentials OperatorCredentials `json:"-" gorm:"serializer:json"`
	CreatedAt   time.Time           `json:"created_at" gorm:"autoCreateTime"`
}

// OperatorCredentials is a tagged union: exactly the member matching the
// operator's type is set.
type OperatorCredentials struct {
	LvlupSMS   *LvlupSMSCredentials   `json:"lvlup_sms,omitempty"`
	LvlupOther *LvlupOtherCredentials `json:"lvlup_other,omitempty"`
	MicroSMS   *MicroSMSCredentials   `json:"microsms_sms,omitempty"`
}

type LvlupSMSCredentials struct {
	ClientID string `json:"client_id"`
}

type LvlupOtherCredentials struct {
	APIKey string `json:"api_key"`
}

type MicroSMSCredentials struct {
	ClientID   string `json:"client_id"`
	ServiceID  string `json:"service_id"`
	SMSContent string `json:"sms_content"`
}

// Validate checks that creds carries a complete payload for t and nothing else.
func (c OperatorCredentials) Validate(t OperatorType) error {
	set := 0
	for _, present := range []bool{c.LvlupSMS != nil, c.LvlupOther != nil, c.MicroSMS != nil} {
		if present {
			set++
		}
	}
	if set > 1 {
		return ErrMismatchedCredential
	}

	switch t {
	case OperatorLvlupSMS:
		if c.LvlupSMS == nil || c.LvlupSMS.ClientID == "" {
			return ErrMissingCredentials
		}
	case OperatorLvlupOther:
		if c.LvlupOther == nil || c.LvlupOther.APIKey == "" {
			return ErrMissingCredentials
		}
	case OperatorMicroSMS:
		m := c.MicroSMS
		if m == nil || m.ClientID == "" || m.ServiceID == "" || m.SMSContent == "" {
			return ErrMissingCredentials
		}
	default:
		return ErrUnknownOperatorType
	}
	return nil
}

// AddOperatorRequest is the body of POST /api/v1/servers/{id}/operators.
// Credential fields are flat as the panel form sends them.
type AddOperatorRequest struct {
	Type       OperatorType `json:"operator_type"`
	Name       string       `json:"operator_name"`
	ClientID   string       `json:"client_id"`
	APIKey     string       `json:"api_key"`
	ServiceID  string       `json:"service_id"`
	SMSContent string       `json:"sms_content"`
}

// Credentials builds the union member for r.Type from the flat fields.
func (r AddOperatorRequest) Credentials() OperatorCredentials {
	switch r.Type {
	case OperatorLvlupSMS:
		return OperatorCredentials{LvlupSMS: &LvlupSMSCredentials{ClientID: r.ClientID}}
	case OperatorLvlupOther:
		return OperatorCredentials{LvlupOther: &LvlupOtherCredentials{APIKey: r.APIKey}}
	case OperatorMicroSMS:
		return OperatorCredentials{MicroSMS: &MicroSMSCredentials{
			ClientID:   r.ClientID,
			ServiceID:  r.ServiceID,
			SMSContent: r.SMSContent,
		}}
	}
	return OperatorCredentials{}
}
