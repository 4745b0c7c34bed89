package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"candidaterank/internal/errors"
	"candidaterank/internal/observability"

	"github.com/fsnotify/fsnotify"
)

// CertReloader serves the current server certificate and swaps it when the
// certificate or key file changes on disk.
type CertReloader struct {
	certFile string
	keyFile  string
	debounce time.Duration

	mu         sync.RWMutex
	cert       *tls.Certificate
	notAfter   time.Time
	reloads    int
	failures   int
	lastReload time.Time
	lastError  string
	watching   bool

	metrics *observability.RankingMetrics
	logger  *errors.Logger
}

// NewCertReloader loads the key pair once. metrics may be nil.
func NewCertReloader(certFile, keyFile string, debounce time.Duration, metrics *observability.RankingMetrics, logger *errors.Logger) (*CertReloader, error) {
	if debounce <= 0 {
		debounce = time.Second
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	cr := &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		debounce: debounce,
		metrics:  metrics,
		logger:   logger,
	}
	if err := cr.load(); err != nil {
		return nil, err
	}
	return cr, nil
}

func (cr *CertReloader) load() error {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key from files: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse server certificate: %w", err)
	}

	cr.mu.Lock()
	cr.cert = &cert
	cr.notAfter = leaf.NotAfter
	cr.mu.Unlock()
	return nil
}

// Reload re-reads the key pair. The previous certificate stays in use on failure.
func (cr *CertReloader) Reload() error {
	err := cr.load()

	cr.mu.Lock()
	cr.reloads++
	cr.lastReload = time.Now()
	if err != nil {
		cr.failures++
		cr.lastError = err.Error()
	} else {
		cr.lastError = ""
	}
	cr.mu.Unlock()

	cr.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificates")
		return err
	}
	cr.logger.Info("TLS certificates reloaded successfully", "cert_file", cr.certFile)
	return nil
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

// Watch reloads the key pair after file changes settle for the debounce
// delay. It returns once the watcher is running and stops when ctx is done.
func (cr *CertReloader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Directories catch atomic writes that replace the file by rename.
	dirs := map[string]struct{}{
		filepath.Dir(cr.certFile): {},
		filepath.Dir(cr.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	cr.mu.Lock()
	cr.watching = true
	cr.mu.Unlock()

	cr.logger.Info("Certificate file watcher started",
		"files", []string{cr.certFile, cr.keyFile},
		"debounce_delay", cr.debounce)

	go cr.watchLoop(ctx, watcher)
	return nil
}

func (cr *CertReloader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		if err := watcher.Close(); err != nil {
			cr.logger.LogError(err, "Failed to close file system watcher")
		}
		cr.mu.Lock()
		cr.watching = false
		cr.mu.Unlock()
		cr.logger.Info("Certificate file watcher stopped")
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !cr.isWatchedFile(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cr.debounce)
			} else {
				timer.Reset(cr.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = cr.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cr.logger.LogError(err, "File watcher error")
		}
	}
}

func (cr *CertReloader) isWatchedFile(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == filepath.Clean(cr.certFile) || name == filepath.Clean(cr.keyFile)
}

// Status reports certificate expiry and reload counters for the health endpoint
func (cr *CertReloader) Status() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	timeToExpiry := time.Until(cr.notAfter)
	status := map[string]any{
		"not_after":            cr.notAfter,
		"time_to_expiry_hours": int(timeToExpiry.Hours()),
		"auto_reload":          cr.watching,
		"reload_count":         cr.reloads,
		"reload_failure_count": cr.failures,
	}
	if !cr.lastReload.IsZero() {
		status["last_reload_time"] = cr.lastReload
	}
	if cr.lastError != "" {
		status["last_reload_error"] = cr.lastError
	}

	switch {
	case timeToExpiry <= 0:
		status["healthy"] = false
		status["status"] = "expired"
	case timeToExpiry <= 24*time.Hour:
		status["healthy"] = false
		status["status"] = "critical"
	case timeToExpiry <= 7*24*time.Hour:
		status["healthy"] = true
		status["status"] = "warning"
	default:
		status["healthy"] = true
		status["status"] = "ok"
	}
	return status
}
