package auth

import (
	"github.com/pquerna/otp/totp"
)

// ProvisionedSecret is a freshly generated OTP secret together with
// the otpauth:// URI an authenticator app enrolls from. Nothing is
// persisted until registration proves possession of the secret.
type ProvisionedSecret struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// OTPVerifier abstracts TOTP code checks so the service can be tested
// without real clocks.
type OTPVerifier interface {
	Verify(code, secret string) bool
}

// NewSecret generates a random TOTP secret and its provisioning URI
// for the given account.
func NewSecret(issuer, username string) (ProvisionedSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: username,
	})
	if err != nil {
		return ProvisionedSecret{}, err
	}
	return ProvisionedSecret{Secret: key.Secret(), URI: key.URL()}, nil
}

// TOTPVerifier validates codes against the current wall clock with the
// library's default skew tolerance.
type TOTPVerifier struct{}

func (TOTPVerifier) Verify(code, secret string) bool {
	return totp.Validate(code, secret)
}
