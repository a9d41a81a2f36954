package trust

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// SigningKey is a candidate local key that "publish"/"register" can use to
// authenticate the request, discovered from ssh-agent or ~/.ssh/.
type SigningKey struct {
	Source      string // "agent" or "file"
	Alg         string
	Fingerprint string // SHA256
	Comment     string
	Hints       []string // e.g. "fido2", "gpg-agent", "yubikey?"
	Signer      ssh.Signer
}

// DiscoverSigningKeys finds candidate keys a "publish"/"register" run can
// sign its registry request with: first ssh-agent (falling back to
// gpg-agent's ssh-emulation socket), then ~/.ssh/*.pub files.
func DiscoverSigningKeys(log *slog.Logger) (out []SigningKey, err error) {
	log.Debug("discovering local signing keys")

	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		log.Debug("SSH_AUTH_SOCK not set, trying gpg-agent's SSH socket")
		s, err := gpgAgentSSHSock()
		if err != nil {
			log.Debug("error getting gpg-agent SSH socket", slog.Any("error", err))
		}
		if err == nil && s != "" {
			sock = s
			log.Debug("using gpg-agent SSH socket", slog.String("socket", sock))
		}
	}
	if sock != "" {
		log.Debug("listing agent keys", slog.String("socket", sock))
		keys, err := listAgentKeys(sock)
		if err != nil {
			log.Warn("failed to list SSH agent keys", slog.Any("error", err))
		}
		if err == nil {
			out = append(out, keys...)
		}
	}

	log.Debug("scanning ~/.ssh directory for key files")
	keys, err := listFileKeys()
	if err != nil {
		log.Warn("failed to scan for key files", slog.Any("error", err))
	}
	if err == nil {
		out = append(out, keys...)
	}

	return out, nil
}

func listAgentKeys(sock string) (out []SigningKey, err error) {
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ac := agent.NewClient(conn)
	keys, err := ac.List()
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		pub, err := ssh.ParsePublicKey(k.Marshal())
		if err != nil {
			continue
		}
		out = append(out, SigningKey{
			Source:      "agent",
			Alg:         algorithmName(pub.Type()),
			Fingerprint: ssh.FingerprintSHA256(pub),
			Comment:     strings.TrimSpace(k.Comment),
			Hints:       classify(pub.Type(), k.Comment),
			Signer:      &agentSigner{socket: sock, publicKey: pub},
		})
	}
	return out, nil
}

func listFileKeys() ([]SigningKey, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	matches, _ := filepath.Glob(filepath.Join(home, ".ssh", "*.pub"))

	var out []SigningKey
	for _, p := range matches {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		fields := bytes.Fields(data)
		if len(fields) < 2 {
			continue
		}
		pub, _, _, _, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			continue
		}
		comment := ""
		if len(fields) >= 3 {
			comment = string(bytes.Join(fields[2:], []byte(" ")))
		}

		privateKeyPath := strings.TrimSuffix(p, ".pub")
		signer, err := loadPrivateKey(privateKeyPath)
		if err != nil {
			signer = nil
		}

		out = append(out, SigningKey{
			Source:      "file",
			Alg:         algorithmName(pub.Type()),
			Fingerprint: ssh.FingerprintSHA256(pub),
			Comment:     strings.TrimSpace(comment),
			Hints:       classify(pub.Type(), comment),
			Signer:      signer,
		})
	}
	return out, nil
}

func algorithmName(t string) string {
	switch t {
	case "ssh-ed25519":
		return "ed25519"
	case "ssh-rsa":
		return "rsa"
	case "ecdsa-sha2-nistp256":
		return "ecdsa-p256"
	case "sk-ecdsa-sha2-nistp256@openssh.com":
		return "ecdsa-sk"
	case "sk-ssh-ed25519@openssh.com":
		return "ed25519-sk"
	default:
		return t
	}
}

func classify(pubType, comment string) []string {
	var hints []string
	if strings.Contains(pubType, "-sk") || strings.HasPrefix(pubType, "sk-") {
		hints = append(hints, "fido2")
	}
	c := strings.ToLower(comment)
	if strings.Contains(c, "cardno:") || strings.Contains(c, "gpg") {
		hints = append(hints, "gpg-agent")
	}
	if strings.Contains(c, "yubikey") {
		hints = append(hints, "yubikey?")
	}
	return hints
}

func gpgAgentSSHSock() (string, error) {
	cmd := exec.Command("gpgconf", "--list-dirs", "agent-ssh-socket")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func loadPrivateKey(path string) (ssh.Signer, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("trust: encrypted keys not supported: %w", err)
	}
	return signer, nil
}

type agentSigner struct {
	socket    string
	publicKey ssh.PublicKey
}

func (s *agentSigner) PublicKey() ssh.PublicKey {
	return s.publicKey
}

func (s *agentSigner) Sign(rand io.Reader, data []byte) (*ssh.Signature, error) {
	conn, err := net.Dial("unix", s.socket)
	if err != nil {
		return nil, fmt.Errorf("trust: failed to connect to ssh-agent: %w", err)
	}
	defer conn.Close()

	ac := agent.NewClient(conn)
	return ac.Sign(s.publicKey, data)
}
