package httpfs

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yagna-labs/zksync-requestor/pkg/system"
	"github.com/yagna-labs/zksync-requestor/pkg/util/closer"
)

const (
	filesPrefix   = "/files"
	uploadsPrefix = "/uploads"
)

type ServerParams struct {
	// ListenAddress is the host:port to bind. Port 0 picks a free port.
	ListenAddress string
	// PublicURL is the base URL providers use to reach this server.
	// Empty means http://<bound address>.
	PublicURL     string
	MaxUploadSize datasize.ByteSize
}

// Server makes local files reachable by providers. Published files are
// addressed by the CID of their content; uploads go to single-use handles that
// each map to one local destination path.
type Server struct {
	params ServerParams
	router *mux.Router

	mu        sync.RWMutex
	published map[string]string
	uploads   map[string]string

	listener   net.Listener
	httpServer *http.Server
	publicURL  *url.URL
}

func NewServer(params ServerParams) (*Server, error) {
	if params.ListenAddress == "" {
		return nil, errors.New("listen address is required")
	}
	if params.MaxUploadSize == 0 {
		params.MaxUploadSize = 512 * datasize.MB
	}
	s := &Server{
		params:    params,
		published: map[string]string{},
		uploads:   map[string]string{},
	}
	router := mux.NewRouter()
	router.Handle(filesPrefix+"/{cid}", instrument("files", s.serveFile)).Methods(http.MethodGet, http.MethodHead)
	router.Handle(uploadsPrefix+"/{id}", instrument("uploads", s.receiveUpload)).Methods(http.MethodPut, http.MethodPost)
	s.router = router
	return s, nil
}

// Handler exposes the routes without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

func instrument(name string, fn http.HandlerFunc) http.Handler {
	return otelhttp.NewHandler(fn, fmt.Sprintf("pkg/transfer/httpfs/%s", name))
}

// Start binds the listener and serves in the background until Stop is called.
// Stop is registered on cm when one is given.
func (s *Server) Start(ctx context.Context, cm *system.CleanupManager) error {
	listener, err := net.Listen("tcp", s.params.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.params.ListenAddress)
	}
	publicURL := s.params.PublicURL
	if publicURL == "" {
		publicURL = "http://" + listener.Addr().String()
	}
	base, err := url.Parse(publicURL)
	if err != nil {
		closer.CloseWithLogOnError("transfer listener", listener)
		return errors.Wrapf(err, "invalid public URL %q", publicURL)
	}

	s.mu.Lock()
	s.listener = listener
	s.publicURL = base
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       5 * time.Minute,
	}
	srv := s.httpServer
	s.mu.Unlock()

	if cm != nil {
		cm.RegisterCallbackWithContext(s.Stop)
	}

	log.Ctx(ctx).Debug().Msgf("transfer server listening on %s, public URL %s", listener.Addr(), base)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Ctx(ctx).Error().Err(err).Msg("transfer server stopped unexpectedly")
		}
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight transfers until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) baseURL() (*url.URL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.publicURL == nil {
		return nil, errors.New("transfer server is not started")
	}
	return s.publicURL, nil
}

// Publish makes the file at localPath downloadable and returns its URL.
// The file must not change until it is released.
func (s *Server) Publish(ctx context.Context, localPath string) (*url.URL, error) {
	base, err := s.baseURL()
	if err != nil {
		return nil, err
	}
	id, err := contentID(localPath)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.published[id.String()] = localPath
	s.mu.Unlock()

	log.Ctx(ctx).Trace().Str("cid", id.String()).Msgf("published %s", localPath)
	return base.JoinPath(filesPrefix, id.String()), nil
}

// OpenForUpload returns a single-use URL whose upload is stored at localPath.
// The file only appears at localPath once the upload completed.
func (s *Server) OpenForUpload(ctx context.Context, localPath string) (*url.URL, error) {
	base, err := s.baseURL()
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(localPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", localPath)
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = absPath
	s.mu.Unlock()

	log.Ctx(ctx).Trace().Str("upload_id", id).Msgf("opened upload to %s", absPath)
	return base.JoinPath(uploadsPrefix, id), nil
}

// Release forgets a URL handed out by Publish or OpenForUpload.
func (s *Server) Release(_ context.Context, u *url.URL) {
	dir, last := filepath.Split(u.Path)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch filepath.Clean(dir) {
	case filesPrefix:
		delete(s.published, last)
	case uploadsPrefix:
		delete(s.uploads, last)
	}
}

func contentID(path string) (cid.Cid, error) {
	f, err := os.Open(path)
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "opening %s", path)
	}
	defer closer.CloseWithLogOnError(path, f)

	digest, err := multihash.SumStream(f, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, errors.Wrapf(err, "hashing %s", path)
	}
	return cid.NewCidV1(cid.Raw, digest), nil
}

func (s *Server) serveFile(res http.ResponseWriter, req *http.Request) {
	id, err := cid.Decode(mux.Vars(req)["cid"])
	if err != nil {
		http.Error(res, fmt.Sprintf("invalid cid: %s", err), http.StatusBadRequest)
		return
	}
	s.mu.RLock()
	path, ok := s.published[id.String()]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(res, req)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Ctx(req.Context()).Error().Err(err).Str("cid", id.String()).Msg("published file is gone")
		http.Error(res, "published file is not readable", http.StatusGone)
		return
	}
	defer closer.CloseWithLogOnError(path, f)
	stat, err := f.Stat()
	if err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "application/octet-stream")
	res.Header().Set("ETag", `"`+id.String()+`"`)
	http.ServeContent(res, req, "", stat.ModTime(), f)
}

func (s *Server) receiveUpload(res http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	s.mu.Lock()
	path, ok := s.uploads[id]
	delete(s.uploads, id)
	s.mu.Unlock()
	if !ok {
		http.Error(res, "unknown or already used upload handle", http.StatusNotFound)
		return
	}

	body := http.MaxBytesReader(res, req.Body, int64(s.params.MaxUploadSize.Bytes()))
	written, err := writeAtomically(path, body)
	if err != nil {
		log.Ctx(req.Context()).Warn().Err(err).Str("upload_id", id).Msgf("upload to %s failed", path)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(res, "upload exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(res, "upload failed", http.StatusInternalServerError)
		return
	}
	log.Ctx(req.Context()).Debug().Str("upload_id", id).
		Msgf("received %s into %s", datasize.ByteSize(written).HumanReadable(), path)
	res.WriteHeader(http.StatusCreated)
}

// writeAtomically writes r into a temporary file next to path and renames it
// into place, so a partial upload is never visible at path.
func writeAtomically(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return 0, errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".upload-*")
	if err != nil {
		return 0, errors.Wrap(err, "creating temporary file")
	}
	written, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return written, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return written, errors.Wrapf(err, "moving upload into %s", path)
	}
	return written, nil
}
