package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	applogger "ScoutSync/pkg/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type SFTPConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	RemoteDir      string
	KnownHostsFile string
	Timeout        time.Duration
	DownloadDir    string
}

// SFTPSource downloads the workbooks of a remote directory into DownloadDir.
type SFTPSource struct {
	cfg SFTPConfig
	l   *applogger.Logger
}

func NewSFTPSource(cfg SFTPConfig, l *applogger.Logger) (*SFTPSource, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, errors.New("sftp: host and user are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "."
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SFTPSource{cfg: cfg, l: l}, nil
}

// FetchAll opens one SSH session, downloads every remote .xlsx file and
// returns the local paths in name order.
func (s *SFTPSource) FetchAll(ctx context.Context) ([]string, error) {
	hostKey, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.cfg.Password)},
		HostKeyCallback: hostKey,
		Timeout:         s.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	defer client.Close()

	entries, err := client.ReadDir(s.cfg.RemoteDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.cfg.RemoteDir, err)
	}
	if err := os.MkdirAll(s.cfg.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !isWorkbook(e.Name()) {
			continue
		}
		local := filepath.Join(s.cfg.DownloadDir, e.Name())
		if err := download(client, path.Join(s.cfg.RemoteDir, e.Name()), local); err != nil {
			return nil, err
		}
		if s.l != nil {
			s.l.Debug("downloaded workbook",
				applogger.String("remote", e.Name()),
				applogger.Int64("bytes", e.Size()),
			)
		}
		out = append(out, local)
	}
	sort.Strings(out)
	return out, nil
}

func (s *SFTPSource) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.cfg.KnownHostsFile == "" {
		if s.l != nil {
			s.l.Warn("sftp host key verification disabled", applogger.String("host", s.cfg.Host))
		}
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(s.cfg.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("known hosts: %w", err)
	}
	return cb, nil
}

func download(client *sftp.Client, remote, local string) error {
	src, err := client.Open(remote)
	if err != nil {
		return fmt.Errorf("open %s: %w", remote, err)
	}
	defer src.Close()

	dst, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("create %s: %w", local, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("download %s: %w", remote, err)
	}
	return dst.Close()
}
