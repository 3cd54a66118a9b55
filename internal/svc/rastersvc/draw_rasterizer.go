package rastersvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // decoder
	_ "image/jpeg" // decoder
	_ "image/png"  // decoder
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/infra/logging"
	"github.com/mkrupp/memeforge/internal/repo/surfacecache"
)

// ErrUnknownInterpolator is returned when an unsupported interpolation method
// is configured.
var ErrUnknownInterpolator = errors.New("unknown interpolator")

//nolint:gochecknoglobals
var (
	// interpolMap maps interpolator names to their implementations.
	// Supported values: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear".
	interpolMap = map[string]draw.Interpolator{
		"nearestneighbor": draw.NearestNeighbor,
		"catmullrom":      draw.CatmullRom,
		"bilinear":        draw.BiLinear,
		"approxbilinear":  draw.ApproxBiLinear,
	}
)

func getInterpolatorByName(name string) (draw.Interpolator, error) {
	interpol, ok := interpolMap[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterpolator, name)
	}

	return interpol, nil
}

// DrawRasterizer implements Rasterizer using x/image/draw scaling on top of
// the surface cache. Cross-origin fetches that only succeed anonymously mark
// the produced surface tainted; the encoder refuses tainted surfaces.
type DrawRasterizer struct {
	config   RasterizerConfig
	log      logging.Logger
	cache    surfacecache.Cache
	client   *http.Client
	interpol draw.Interpolator
}

var _ Rasterizer = (*DrawRasterizer)(nil)

// DrawRasterizerFactory creates a factory function that returns a new
// DrawRasterizer. The factory function implements the RasterizerFactory type.
func DrawRasterizerFactory(cfg RasterizerConfig, cache surfacecache.Cache) RasterizerFactory {
	return func(ctx context.Context) (Rasterizer, error) {
		return NewDrawRasterizer(cfg, cache)
	}
}

// NewDrawRasterizer creates a new DrawRasterizer with the given configuration.
// A nil cache disables surface caching regardless of configuration.
func NewDrawRasterizer(cfg RasterizerConfig, cache surfacecache.Cache) (*DrawRasterizer, error) {
	interpol, err := getInterpolatorByName(cfg.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("get interpolator: %w", err)
	}

	return &DrawRasterizer{
		config: cfg,
		log: logging.GetLogger("svc.rastersvc.draw_rasterizer").With(
			logging.Group("rasterizer",
				"maxDimension", cfg.MaxDimension,
				"interpolator", cfg.Interpolator,
			),
		),
		cache:    cache,
		client:   &http.Client{Timeout: cfg.FetchTimeout}, //nolint:exhaustruct
		interpol: interpol,
	}, nil
}

// Rasterize implements Rasterizer.Rasterize.
func (r *DrawRasterizer) Rasterize(
	ctx context.Context,
	source domain.ImageSource,
	opts RasterOptions,
) (surface *domain.RasterSurface, err error) {
	defer func() {
		r.log.DebugContext(ctx, "rasterize",
			"source", source.Descriptor(),
			"error", err,
		)
	}()

	if source.IsZero() {
		return nil, &domain.ValidationError{Reason: "export source is empty", Err: domain.ErrSourceEmpty}
	}

	cacheKey := ""
	if r.cache != nil && r.config.CacheEnabled {
		cacheKey = surfacecache.KeyFor(source, opts.TargetWidth, opts.TargetHeight)
		if cached, ok := r.cache.Get(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	img, taintOrigin, err := r.resolve(ctx, source)
	if err != nil {
		return nil, err
	}

	nativeWidth := img.Bounds().Dx()
	nativeHeight := img.Bounds().Dy()

	if err := r.checkLimits(nativeWidth, nativeHeight); err != nil {
		return nil, err
	}

	width, height, err := resolveTarget(nativeWidth, nativeHeight, opts)
	if err != nil {
		return nil, err
	}

	if err := r.checkLimits(width, height); err != nil {
		return nil, err
	}

	surface = domain.NewRasterSurface(width, height)
	r.interpol.Scale(surface.RGBA(), surface.RGBA().Bounds(), img, img.Bounds(), draw.Src, nil)

	if taintOrigin != "" {
		surface.MarkTainted(taintOrigin)
	}

	// Probe pixel read confirms the buffer is readable after the draw.
	_ = surface.At(0, 0)

	if cacheKey != "" {
		r.cache.Put(ctx, cacheKey, surface)
	}

	return surface, nil
}

// resolve turns the source into a decoded image. The returned origin is
// non-empty when the pixels came from a cross-origin fetch that only
// succeeded anonymously.
func (r *DrawRasterizer) resolve(
	ctx context.Context,
	source domain.ImageSource,
) (image.Image, string, error) {
	switch source.Kind() {
	case domain.SourceImage:
		return source.Image(), "", nil
	case domain.SourceDataURI:
		img, err := r.decodeDataURI(source)

		return img, "", err
	case domain.SourceURL:
		return r.fetch(ctx, source.URL())
	default:
		return nil, "", &domain.ValidationError{Reason: "unsupported source kind", Err: domain.ErrSourceEmpty}
	}
}

func (r *DrawRasterizer) decodeDataURI(source domain.ImageSource) (image.Image, error) {
	uri := source.DataURI()

	if !strings.HasPrefix(uri, "data:image/") {
		return nil, &domain.ValidationError{
			Reason: "data uri must carry an image/* media type",
			Err:    domain.ErrDataURIMalformed,
		}
	}

	marker := strings.Index(uri, ";base64,")
	if marker < 0 {
		return nil, &domain.ValidationError{
			Reason: "data uri payload must be base64-encoded",
			Err:    domain.ErrDataURIMalformed,
		}
	}

	payload := uri[marker+len(";base64,"):]

	// Size guard runs on the encoded length, before any decode work.
	if decodedLen := int64(base64.StdEncoding.DecodedLen(len(payload))); decodedLen > r.config.MaxDataURIBytes {
		return nil, &domain.ValidationError{
			Reason: fmt.Sprintf("decoded payload of %d bytes exceeds %d byte cap", decodedLen, r.config.MaxDataURIBytes),
			Err:    domain.ErrDataURITooLarge,
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &domain.ValidationError{Reason: "invalid base64 payload", Err: domain.ErrDataURIMalformed}
	}

	if err := r.sniffLimits(data); err != nil {
		return nil, err
	}

	img, err := decodeImage(data)
	if err != nil {
		return nil, &domain.DecodeError{Source: source.Descriptor(), Err: err}
	}

	return img, nil
}

func (r *DrawRasterizer) fetch(ctx context.Context, rawURL string) (image.Image, string, error) {
	data, err := r.fetchOnce(ctx, rawURL, r.config.Credentials)

	taintOrigin := ""

	var netErr *domain.NetworkError

	// A credentialed fetch refused with 401/403 is retried once anonymously.
	// Pixels obtained that way are tainted and will be refused at encode.
	if r.config.Credentials != "" && errors.As(err, &netErr) &&
		(netErr.Status == http.StatusUnauthorized || netErr.Status == http.StatusForbidden) {
		r.log.DebugContext(ctx, "credentialed fetch refused, retrying anonymously",
			"url", rawURL,
			"status", netErr.Status,
		)

		data, err = r.fetchOnce(ctx, rawURL, "")
		taintOrigin = originOf(rawURL)
	}

	if err != nil {
		return nil, "", err
	}

	if err := r.sniffLimits(data); err != nil {
		return nil, "", err
	}

	img, err := decodeImage(data)
	if err != nil {
		return nil, "", &domain.DecodeError{Source: "url(" + rawURL + ")", Err: err}
	}

	return img, taintOrigin, nil
}

func (r *DrawRasterizer) fetchOnce(ctx context.Context, rawURL, credentials string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &domain.ValidationError{Reason: "invalid source url", Err: err}
	}

	if credentials != "" {
		req.Header.Set("Authorization", credentials)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &domain.TimeoutError{Op: "fetch source", After: r.config.FetchTimeout}
		}

		return nil, &domain.NetworkError{URL: rawURL, Status: 0, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.NetworkError{URL: rawURL, Status: resp.StatusCode, Err: nil}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.config.MaxDataURIBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, &domain.TimeoutError{Op: "read source body", After: r.config.FetchTimeout}
		}

		return nil, &domain.NetworkError{URL: rawURL, Status: 0, Err: err}
	}

	if int64(len(data)) > r.config.MaxDataURIBytes {
		//nolint:exhaustruct
		return nil, &domain.MemoryError{
			NeedBytes:   int64(len(data)),
			BudgetBytes: r.config.MaxDataURIBytes,
		}
	}

	return data, nil
}

func (r *DrawRasterizer) checkLimits(width, height int) error {
	if width <= 0 || height <= 0 {
		return &domain.ValidationError{
			Reason: fmt.Sprintf("surface dimensions %dx%d", width, height),
			Err:    domain.ErrSurfaceEmpty,
		}
	}

	pixels := int64(width) * int64(height)

	if width > r.config.MaxDimension || height > r.config.MaxDimension || pixels > r.config.MaxPixels {
		return &domain.DimensionError{
			Width:        width,
			Height:       height,
			MaxDimension: r.config.MaxDimension,
			MaxPixels:    r.config.MaxPixels,
		}
	}

	if need := pixels * 4; need > r.config.MemoryBudget {
		return &domain.MemoryError{
			NeedBytes:   need,
			BudgetBytes: r.config.MemoryBudget,
			Width:       width,
			Height:      height,
			Err:         nil,
		}
	}

	return nil
}

// resolveTarget derives the draw dimensions from the options, preserving the
// aspect ratio when only one side is given.
func resolveTarget(nativeWidth, nativeHeight int, opts RasterOptions) (int, int, error) {
	width, height := opts.TargetWidth, opts.TargetHeight

	switch {
	case width == 0 && height == 0:
		return nativeWidth, nativeHeight, nil
	case width == 0:
		width = max(1, nativeWidth*height/nativeHeight)
	case height == 0:
		height = max(1, nativeHeight*width/nativeWidth)
	}

	if width < 0 || height < 0 {
		return 0, 0, &domain.ValidationError{
			Reason: fmt.Sprintf("negative target dimensions %dx%d", opts.TargetWidth, opts.TargetHeight),
			Err:    domain.ErrSurfaceEmpty,
		}
	}

	return width, height, nil
}

// sniffLimits applies the dimension and memory limits to the dimensions the
// container header declares, before the full decoder runs and allocates the
// pixel buffer. Payloads whose header cannot be read fall through to the
// full decoder for the authoritative decode error.
func (r *DrawRasterizer) sniffLimits(data []byte) error {
	cfg, err := decodeImageConfig(data)
	if err != nil {
		return nil //nolint:nilerr
	}

	return r.checkLimits(cfg.Width, cfg.Height)
}

func decodeImageConfig(data []byte) (image.Config, error) {
	if isWebP(data) {
		return webp.DecodeConfig(bytes.NewReader(data))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))

	return cfg, err
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
}

// decodeImage sniffs the container and decodes the payload. WebP is handled
// explicitly; everything else goes through the registered stdlib decoders.
func decodeImage(data []byte) (image.Image, error) {
	if isWebP(data) {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}

		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return img, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}

	return parsed.Scheme + "://" + parsed.Host
}
