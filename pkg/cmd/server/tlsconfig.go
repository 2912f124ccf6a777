package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/config"
	"github.com/mpapenbr/f1-race-predictor/pkg/utils/certs/traefik"
)

var errNoCertSource = errors.New("neither traefik certs nor cert/key files configured")

type (
	certSource struct {
		certFile      string
		keyFile       string
		traefikFile   string
		traefikDomain string
	}
	certs struct {
		src  certSource
		log  *log.Logger
		cert *tls.Certificate
		mu   sync.RWMutex
	}
)

func (s certSource) files() []string {
	ret := []string{}
	for _, f := range []string{s.certFile, s.keyFile, s.traefikFile} {
		if f != "" {
			ret = append(ret, f)
		}
	}
	return ret
}

func (s certSource) load() (tls.Certificate, error) {
	switch {
	case s.traefikFile != "" && s.traefikDomain != "":
		return traefik.GetCertFromTraefik(s.traefikFile, s.traefikDomain)
	case s.certFile != "" && s.keyFile != "":
		return tls.LoadX509KeyPair(s.certFile, s.keyFile)
	default:
		return tls.Certificate{}, errNoCertSource
	}
}

// NewTLSConfigProvider returns a TLS config whose certificate is reloaded
// when the underlying files change. It returns nil if no certificate could
// be loaded.
func NewTLSConfigProvider(ctx context.Context) *tls.Config {
	c := &certs{
		src: certSource{
			certFile:      config.TLSCertFile,
			keyFile:       config.TLSKeyFile,
			traefikFile:   config.TraefikCerts,
			traefikDomain: config.TraefikCertDomain,
		},
		log: log.GetFromContext(ctx).Named("server.certs"),
	}
	if err := c.reload(); err != nil {
		c.log.Error("could not load certificate", log.ErrorField(err))
		return nil
	}
	ret := &tls.Config{
		GetCertificate: func(chi *tls.ClientHelloInfo) (*tls.Certificate, error) {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return c.cert, nil
		},
		MinVersion: tls.VersionTLS13,
	}
	if config.TLSCAFile != "" {
		pool, err := loadCAPool(config.TLSCAFile)
		if err != nil {
			c.log.Error("could not load TLS root CA", log.ErrorField(err))
		} else {
			ret.ClientCAs = pool
			ret.ClientAuth = tls.VerifyClientCertIfGiven
		}
	}
	go c.watch(ctx)
	return ret
}

func loadCAPool(file string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("no certificates found in %s", file)
	}
	return pool, nil
}

func (c *certs) reload() error {
	cert, err := c.src.load()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = &cert
	return nil
}

func (c *certs) watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.log.Error("could not create fsnotify watcher", log.ErrorField(err))
		return
	}
	defer watcher.Close()
	for _, f := range c.src.files() {
		if err := watcher.Add(f); err != nil {
			c.log.Error("could not watch file", log.String("file", f), log.ErrorField(err))
		}
	}
	for {
		select {
		case <-ctx.Done():
			c.log.Info("context done, stopping cert reload")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Chmod|fsnotify.Create) == 0 {
				continue
			}
			c.log.Info("cert file changed, reloading cert", log.String("file", event.Name))
			if err := c.reload(); err != nil {
				c.log.Error("could not reload certificate, keeping the old one",
					log.ErrorField(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.log.Error("watcher error", log.ErrorField(err))
		}
	}
}
