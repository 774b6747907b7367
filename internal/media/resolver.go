package media

import (
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// Kind is the media type a URL resolves to.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Config describes the CDN whose upload URLs receive transformation segments.
type Config struct {
	CDNHost        string
	PathMarker     string
	ImageTransform string
	VideoTransform string
	GIFAsVideo     bool
}

// VideoConfig holds playback defaults for rendered video elements.
type VideoConfig struct {
	Autoplay  bool
	HoverPlay bool
	Muted     bool
	Loop      bool
	Controls  bool
}

// DefaultConfig returns the CDN settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		CDNHost:        "res.cloudinary.com",
		PathMarker:     "/upload/",
		ImageTransform: "f_auto,q_auto,w_800",
		VideoTransform: "f_auto,q_auto,vc_auto,w_800",
	}
}

var videoExtensions = []string{".mp4", ".webm", ".mov", ".m4v", ".ogv", ".ogg", ".avi", ".mkv"}

var transformPrefixes = []string{
	"w_", "h_", "c_", "q_", "f_", "ar_", "g_", "e_", "b_", "r_", "dpr_",
	"vc_", "ac_", "br_", "fps_", "so_", "eo_", "du_", "sp_", "fl_", "t_",
}

// Tokens that only make sense for a moving picture and break still frames.
var videoOnlyPrefixes = []string{"vc_", "ac_", "br_", "fps_", "sp_", "du_", "eo_", "so_"}

// Option customises the resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithVideo sets the playback defaults used by Resolve.
func WithVideo(video VideoConfig) Option {
	return func(r *Resolver) {
		r.video = video
	}
}

// Resolver classifies media URLs and rewrites CDN URLs with transform presets.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	cfg    Config
	video  VideoConfig
	logger interfaces.Logger
}

// NewResolver constructs a resolver. Empty host or marker fall back to the defaults.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.CDNHost) == "" {
		cfg.CDNHost = defaults.CDNHost
	}
	if strings.TrimSpace(cfg.PathMarker) == "" {
		cfg.PathMarker = defaults.PathMarker
	}
	cfg.CDNHost = strings.ToLower(strings.TrimSpace(cfg.CDNHost))
	if !strings.HasPrefix(cfg.PathMarker, "/") {
		cfg.PathMarker = "/" + cfg.PathMarker
	}
	if !strings.HasSuffix(cfg.PathMarker, "/") {
		cfg.PathMarker += "/"
	}
	r := &Resolver{
		cfg:    cfg,
		video:  VideoConfig{HoverPlay: true, Muted: true, Loop: true},
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify reports whether raw points at a video. Anything ambiguous is an image.
func (r *Resolver) Classify(raw string) Kind {
	u, ok := parse(raw)
	if !ok {
		return KindImage
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if slices.Contains(videoExtensions, ext) {
		return KindVideo
	}
	if r.isCDN(u) && slices.Contains(strings.Split(u.Path, "/"), "video") {
		return KindVideo
	}
	if ext == ".gif" && r.cfg.GIFAsVideo {
		return KindVideo
	}
	return KindImage
}

// Transform injects the preset for kind after the CDN path marker, replacing
// any transform segment already present. Non-CDN URLs are returned unchanged.
func (r *Resolver) Transform(raw string, kind Kind) string {
	u, ok := parse(raw)
	if !ok || !r.isCDN(u) {
		return raw
	}
	head, segments, ok := r.split(u.Path)
	if !ok {
		return raw
	}
	if len(segments) > 0 && isTransformSegment(segments[0]) {
		segments = segments[1:]
	}
	preset := r.cfg.ImageTransform
	if kind == KindVideo {
		preset = r.cfg.VideoTransform
	}
	if preset = strings.Trim(strings.TrimSpace(preset), "/"); preset != "" {
		segments = append([]string{preset}, segments...)
	}
	if kind == KindVideo && len(segments) > 0 {
		last := segments[len(segments)-1]
		if strings.EqualFold(path.Ext(last), ".gif") {
			segments[len(segments)-1] = strings.TrimSuffix(last, path.Ext(last)) + ".mp4"
			head = strings.Replace(head, "/image"+r.cfg.PathMarker, "/video"+r.cfg.PathMarker, 1)
		}
	}
	return r.rebuild(u, head, segments)
}

// DeriveThumbnail returns a still-frame URL for a CDN video, keeping every
// transform token that is not video-only. It reports false for any URL that
// is not a CDN video upload.
func (r *Resolver) DeriveThumbnail(raw string) (string, bool) {
	u, ok := parse(raw)
	if !ok || !r.isCDN(u) || r.Classify(raw) != KindVideo {
		return "", false
	}
	head, segments, ok := r.split(u.Path)
	if !ok || len(segments) == 0 {
		return "", false
	}
	if isTransformSegment(segments[0]) {
		tokens := slices.DeleteFunc(strings.Split(segments[0], ","), func(token string) bool {
			return hasAnyPrefix(token, videoOnlyPrefixes)
		})
		if len(tokens) == 0 {
			segments = segments[1:]
		} else {
			segments[0] = strings.Join(tokens, ",")
		}
	}
	if len(segments) == 0 {
		return "", false
	}
	last := segments[len(segments)-1]
	segments[len(segments)-1] = strings.TrimSuffix(last, path.Ext(last)) + ".jpg"
	return r.rebuild(u, head, segments), true
}

func (r *Resolver) isCDN(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host != r.cfg.CDNHost && !strings.HasSuffix(host, "."+r.cfg.CDNHost) {
		return false
	}
	return strings.Contains(u.Path, r.cfg.PathMarker)
}

// split cuts a CDN path into everything up to and including the marker and
// the segments that follow it.
func (r *Resolver) split(p string) (string, []string, bool) {
	idx := strings.Index(p, r.cfg.PathMarker)
	if idx < 0 {
		return "", nil, false
	}
	cut := idx + len(r.cfg.PathMarker)
	rest := strings.Trim(p[cut:], "/")
	if rest == "" {
		return p[:cut], nil, true
	}
	return p[:cut], strings.Split(rest, "/"), true
}

func (r *Resolver) rebuild(u *url.URL, head string, segments []string) string {
	out := *u
	out.Path = head + strings.Join(segments, "/")
	out.RawPath = ""
	return out.String()
}

func isTransformSegment(segment string) bool {
	first, _, _ := strings.Cut(segment, ",")
	return hasAnyPrefix(first, transformPrefixes)
}

func hasAnyPrefix(token string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}

func parse(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	return u, true
}
