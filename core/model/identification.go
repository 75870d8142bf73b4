package model

// IdentificationVariant names one credential form a driver can present.
type IdentificationVariant int

const (
	VariantToken IdentificationVariant = iota
	VariantQRCode
	VariantPlugAndCharge
	VariantRemote
	VariantPublicKey
)

// String returns a human-readable representation of the variant.
func (v IdentificationVariant) String() string {
	switch v {
	case VariantToken:
		return "token"
	case VariantQRCode:
		return "qr_code"
	case VariantPlugAndCharge:
		return "plug_and_charge"
	case VariantRemote:
		return "remote"
	case VariantPublicKey:
		return "public_key"
	default:
		return "unknown"
	}
}

// Identification carries the credential a driver presented. The fields are
// mutually exclusive in practice, but carriers occasionally fill several; the
// precedence order of Variants decides which one identifies the customer
// first.
type Identification struct {
	Token           string `json:"token,omitempty"`
	QRCode          string `json:"qr_code,omitempty"`
	PnCCertificate  string `json:"pnc_certificate,omitempty"`
	RemoteAccountID string `json:"remote_account_id,omitempty"`
	PublicKey       string `json:"public_key,omitempty"`
}

// IsZero reports whether no credential is present.
func (i Identification) IsZero() bool {
	return i.Token == "" && i.QRCode == "" && i.PnCCertificate == "" &&
		i.RemoteAccountID == "" && i.PublicKey == ""
}

// Variants yields the populated credential forms in the fixed probing
// precedence: token, QR code, plug-and-charge certificate, remote account id,
// public key.
func (i Identification) Variants() []IdentificationVariant {
	var out []IdentificationVariant
	if i.Token != "" {
		out = append(out, VariantToken)
	}
	if i.QRCode != "" {
		out = append(out, VariantQRCode)
	}
	if i.PnCCertificate != "" {
		out = append(out, VariantPlugAndCharge)
	}
	if i.RemoteAccountID != "" {
		out = append(out, VariantRemote)
	}
	if i.PublicKey != "" {
		out = append(out, VariantPublicKey)
	}
	return out
}

// Only returns an Identification carrying just the requested variant.
func (i Identification) Only(v IdentificationVariant) Identification {
	switch v {
	case VariantToken:
		return Identification{Token: i.Token}
	case VariantQRCode:
		return Identification{QRCode: i.QRCode}
	case VariantPlugAndCharge:
		return Identification{PnCCertificate: i.PnCCertificate}
	case VariantRemote:
		return Identification{RemoteAccountID: i.RemoteAccountID}
	case VariantPublicKey:
		return Identification{PublicKey: i.PublicKey}
	default:
		return Identification{}
	}
}
