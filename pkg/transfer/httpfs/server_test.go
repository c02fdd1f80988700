//go:build unit || !integration

package httpfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/phayes/freeport"
	"github.com/stretchr/testify/suite"

	"github.com/yagna-labs/zksync-requestor/pkg/logger"
	"github.com/yagna-labs/zksync-requestor/pkg/system"
)

type ServerSuite struct {
	suite.Suite
	ctx    context.Context
	cm     *system.CleanupManager
	server *Server
	dir    string
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.ctx = context.Background()
	s.cm = system.NewCleanupManager()
	s.dir = s.T().TempDir()

	port, err := freeport.GetFreePort()
	s.Require().NoError(err)
	s.server, err = NewServer(ServerParams{
		ListenAddress: fmt.Sprintf("127.0.0.1:%d", port),
		MaxUploadSize: 1 * datasize.KB,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.server.Start(s.ctx, s.cm))
}

func (s *ServerSuite) TearDownTest() {
	s.Require().NoError(s.cm.Cleanup(s.ctx))
}

func (s *ServerSuite) writeFile(name string, data []byte) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, data, 0o600))
	return path
}

func (s *ServerSuite) get(u string) (int, []byte) {
	res, err := http.Get(u) //nolint:gosec,noctx
	s.Require().NoError(err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	s.Require().NoError(err)
	return res.StatusCode, body
}

func (s *ServerSuite) put(u string, data []byte) int {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPut, u, bytes.NewReader(data))
	s.Require().NoError(err)
	res, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	_ = res.Body.Close()
	return res.StatusCode
}

func (s *ServerSuite) TestPublishServesContent() {
	path := s.writeFile("block.json", []byte(`{"block":7}`))
	u, err := s.server.Publish(s.ctx, path)
	s.Require().NoError(err)

	status, body := s.get(u.String())
	s.Equal(http.StatusOK, status)
	s.Equal(`{"block":7}`, string(body))
}

func (s *ServerSuite) TestPublishIsContentAddressed() {
	a := s.writeFile("a", []byte("same"))
	b := s.writeFile("b", []byte("same"))
	c := s.writeFile("c", []byte("other"))

	ua, err := s.server.Publish(s.ctx, a)
	s.Require().NoError(err)
	ub, err := s.server.Publish(s.ctx, b)
	s.Require().NoError(err)
	uc, err := s.server.Publish(s.ctx, c)
	s.Require().NoError(err)

	s.Equal(ua.String(), ub.String())
	s.NotEqual(ua.String(), uc.String())
}

func (s *ServerSuite) TestReleasedFileIsNotServed() {
	path := s.writeFile("proof", []byte("data"))
	u, err := s.server.Publish(s.ctx, path)
	s.Require().NoError(err)

	s.server.Release(s.ctx, u)
	status, _ := s.get(u.String())
	s.Equal(http.StatusNotFound, status)
}

func (s *ServerSuite) TestInvalidCID() {
	status, _ := s.get("http://" + s.server.Addr().String() + filesPrefix + "/not-a-cid")
	s.Equal(http.StatusBadRequest, status)
}

func (s *ServerSuite) TestUploadIsSingleUse() {
	dest := filepath.Join(s.dir, "out", "proof-3.json")
	u, err := s.server.OpenForUpload(s.ctx, dest)
	s.Require().NoError(err)

	s.Equal(http.StatusCreated, s.put(u.String(), []byte(`{"proof":[1,2]}`)))
	got, err := os.ReadFile(dest)
	s.Require().NoError(err)
	s.Equal(`{"proof":[1,2]}`, string(got))

	s.Equal(http.StatusNotFound, s.put(u.String(), []byte("again")))
}

func (s *ServerSuite) TestEmptyUpload() {
	dest := filepath.Join(s.dir, "empty")
	u, err := s.server.OpenForUpload(s.ctx, dest)
	s.Require().NoError(err)

	s.Equal(http.StatusCreated, s.put(u.String(), nil))
	got, err := os.ReadFile(dest)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ServerSuite) TestUploadTooLargeLeavesNoFile() {
	dest := filepath.Join(s.dir, "big")
	u, err := s.server.OpenForUpload(s.ctx, dest)
	s.Require().NoError(err)

	s.Equal(http.StatusRequestEntityTooLarge, s.put(u.String(), bytes.Repeat([]byte("x"), 2048)))
	exists, err := system.PathExists(dest)
	s.Require().NoError(err)
	s.False(exists)

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Empty(entries, "temporary upload files must be removed")
}

func (s *ServerSuite) TestPublicURLOverride() {
	server, err := NewServer(ServerParams{ListenAddress: "127.0.0.1:0", PublicURL: "http://requestor.example:9000"})
	s.Require().NoError(err)
	s.Require().NoError(server.Start(s.ctx, s.cm))

	u, err := server.OpenForUpload(s.ctx, filepath.Join(s.dir, "x"))
	s.Require().NoError(err)
	s.Equal("requestor.example:9000", u.Host)
}

func (s *ServerSuite) TestNotStarted() {
	server, err := NewServer(ServerParams{ListenAddress: "127.0.0.1:0"})
	s.Require().NoError(err)
	_, err = server.Publish(s.ctx, s.writeFile("f", nil))
	s.Error(err)
	s.NoError(server.Stop(s.ctx))
}
