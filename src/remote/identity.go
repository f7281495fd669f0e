package remote

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"

	"ci-deployer/src/apperr"
)

// CheckIdentity parses the private key at keyPath and returns its SHA256
// fingerprint. Encrypted keys are accepted when they carry their public
// half, since ssh will get the passphrase from the agent.
func CheckIdentity(keyPath string) (string, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("%w: identity file: %v", apperr.ErrConfiguration, err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) && missing.PublicKey != nil {
			return ssh.FingerprintSHA256(missing.PublicKey), nil
		}
		return "", fmt.Errorf("%w: identity file %s: %v", apperr.ErrConfiguration, keyPath, err)
	}
	return ssh.FingerprintSHA256(signer.PublicKey()), nil
}
