package push

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/griffithind/dockertree/internal/dterrors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// SSHClient dials a real TCP connection to a remote host, generalizing the
// teacher's docker-exec stdio SSH transport (internal/ssh/client/client.go)
// to the push pipeline's actual need: a network-facing SSH client for
// server preparation, file transfer, and remote import.
type SSHClient struct {
	Host       string
	Port       int
	User       string
	PrivateKey string // path to a private key file; empty uses the SSH agent only
}

// NewSSHClient builds an SSHClient for target, defaulting to port 22.
func NewSSHClient(target Target, privateKeyPath string) *SSHClient {
	return &SSHClient{Host: target.Host, Port: 22, User: target.User, PrivateKey: privateKeyPath}
}

func (c *SSHClient) dial(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.User,
		Auth:            c.authMethods(),
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, dterrors.Wrapf(err, dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"failed to connect to %s", addr)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, dterrors.Wrapf(err, dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"SSH handshake with %s failed", addr)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func (c *SSHClient) authMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if c.PrivateKey != "" {
		if key, err := os.ReadFile(c.PrivateKey); err == nil {
			if signer, err := ssh.ParsePrivateKey(key); err == nil {
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	return methods
}

// Run executes command on the remote host, streaming stdout/stderr to w,
// and returns its exit code.
func (c *SSHClient) Run(ctx context.Context, command string, w io.Writer) (int, error) {
	client, err := c.dial(ctx)
	if err != nil {
		return -1, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return -1, dterrors.Wrap(err, dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed, "failed to open SSH session")
	}
	defer session.Close()

	session.Stdout = w
	session.Stderr = w

	if err := session.Run(command); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return exitErr.ExitStatus(), nil
		}
		return -1, dterrors.Wrapf(err, dterrors.CategoryPush, "REMOTE_COMMAND_FAILED", "remote command failed: %s", command)
	}
	return 0, nil
}

// Upload copies localPath to remotePath over SFTP, per spec §4.10 step 6.
func (c *SSHClient) Upload(ctx context.Context, localPath, remotePath string) error {
	client, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryPush, "SFTP_CLIENT", "failed to open SFTP session")
	}
	defer sc.Close()

	src, err := os.Open(localPath)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryPush, "SFTP_OPEN_LOCAL", "failed to open %s", localPath)
	}
	defer src.Close()

	dst, err := sc.Create(remotePath)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryPush, "SFTP_CREATE_REMOTE", "failed to create %s on remote", remotePath)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"transfer of %s to %s failed", localPath, remotePath)
	}
	return nil
}
