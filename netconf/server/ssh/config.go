package ssh

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// PasswordConfig delivers a server configuration accepting a single user. An empty hostKeyFile
// selects a host key generated for the lifetime of the process.
func PasswordConfig(uname, password, hostKeyFile string) (*ssh.ServerConfig, error) {
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			return checkCredentials(uname, password, c, pass)
		},
	}

	hostKey, err := HostKey(hostKeyFile)
	if err != nil {
		return nil, err
	}
	config.AddHostKey(hostKey)
	return config, nil
}

func checkCredentials(uname, password string, c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
	if c.User() == uname && subtle.ConstantTimeCompare(pass, []byte(password)) == 1 {
		return nil, nil
	}
	return nil, fmt.Errorf("password rejected for %q", c.User())
}

// HostKey loads a PEM encoded private key from file, or generates a 2048 bit RSA key when file
// is empty.
func HostKey(file string) (ssh.Signer, error) {
	if file == "" {
		return generateHostKey()
	}
	b, err := os.ReadFile(file) // nolint: gosec
	if err != nil {
		return nil, errors.Wrap(err, "reading host key")
	}
	signer, err := ssh.ParsePrivateKey(b)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing host key %s", file)
	}
	return signer, nil
}

func generateHostKey() (ssh.Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Wrap(err, "generating host key")
	}
	return ssh.ParsePrivateKey(encodePrivateKeyToPEM(key))
}

func encodePrivateKeyToPEM(privateKey *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
}
