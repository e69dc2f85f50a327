package volcengine

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"highlight-ai/internal/types"
	"highlight-ai/log"
	apperrors "highlight-ai/pkg/errors"
)

const defaultVideoMime = "video/mp4"

// HostResolver looks up the addresses behind a host name.
type HostResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// ClassifySource decides how a reference reaches the model. Explicit origins
// on the source win; otherwise URLs are classified by host and anything that
// is not an http(s) URL is a local path.
func (c *Client) ClassifySource(ctx context.Context, source types.VideoSource) types.SourceOrigin {
	if source.Origin != "" {
		return source.Origin
	}
	u, err := url.Parse(strings.TrimSpace(source.Ref))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.SourceOriginLocal
	}
	if c.isPrivateHost(ctx, u.Hostname()) {
		return types.SourceOriginPrivate
	}
	return types.SourceOriginRemote
}

func (c *Client) isPrivateHost(ctx context.Context, host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return isPrivateIP(ip)
	}
	if c.resolver == nil {
		return false
	}
	ips, err := c.resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		// Unresolvable here means the model cannot reach it either; let the
		// request fail remotely with the model's own error.
		log.GetLogger().Debug("volcengine: host lookup failed, treating as remote", zap.String("host", host), zap.Error(err))
		return false
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return true
		}
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// resolveReference turns a source into the value sent as video_url.
func (c *Client) resolveReference(ctx context.Context, source types.VideoSource) (string, error) {
	switch c.ClassifySource(ctx, source) {
	case types.SourceOriginRemote:
		return source.Ref, nil
	case types.SourceOriginPrivate:
		return c.inlinePrivateURL(ctx, source.Ref)
	default:
		return c.inlineLocalFile(source.Ref)
	}
}

// inlinePrivateURL downloads a URL the model cannot reach into a temp file
// and returns it as a data URI. The temp file never outlives the call.
func (c *Client) inlinePrivateURL(ctx context.Context, ref string) (string, error) {
	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "创建临时目录失败 Failed to create temp dir", err)
	}
	ext := extFromRef(ref)
	tmpPath := filepath.Join(c.tempDir, fmt.Sprintf("volc_%s%s", uuid.New().String(), ext))
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.GetLogger().Warn("volcengine: failed to remove temp download", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	log.GetLogger().Info("volcengine: downloading private video for inline upload", zap.String("url", ref))
	resp, err := c.http.R().
		SetContext(ctx).
		SetOutput(tmpPath).
		Get(ref)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeVideoDownload, apperrors.ErrVideoDownload.Message, err)
	}
	if !resp.IsSuccess() {
		return "", apperrors.WrapWithDetail(apperrors.CodeVideoDownload, apperrors.ErrVideoDownload.Message,
			fmt.Sprintf("GET %s returned %d", ref, resp.StatusCode()), nil)
	}
	return c.encodeFile(tmpPath, ext)
}

func (c *Client) inlineLocalFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", apperrors.WrapWithDetail(apperrors.CodeVideoNotFound, "视频文件不存在 Video file not found", path, err)
	}
	return c.encodeFile(path, filepath.Ext(path))
}

func (c *Client) encodeFile(path, ext string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileNotFound, "读取视频失败 Failed to read video", err)
	}
	if c.inlineWarnBytes > 0 && int64(len(data)) > c.inlineWarnBytes {
		log.GetLogger().Warn("volcengine: large video inlined as base64, request may be rejected",
			zap.String("path", path), zap.Int("bytes", len(data)))
	}
	return "data:" + mimeForExt(ext) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func mimeForExt(ext string) string {
	if t := mime.TypeByExtension(strings.ToLower(ext)); strings.HasPrefix(t, "video/") {
		return t
	}
	return defaultVideoMime
}

func extFromRef(ref string) string {
	if u, err := url.Parse(ref); err == nil {
		if ext := filepath.Ext(u.Path); ext != "" && len(ext) <= 6 {
			return ext
		}
	}
	return ".mp4"
}
