package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"dupdrive/internal/dedupe"
)

// Listing parameters sent to the Drive files.list endpoint.
const (
	ListQuery  = "trashed = false"
	PageSize   = 1000
	ListFields = "nextPageToken, files(id, name, md5Checksum, size, parents, createdTime, modifiedTime, mimeType)"

	// TokenFile is the cached OAuth token, stored next to the credentials file.
	TokenFile = "token.json"

	// UntitledName stands in for items the API returns without a name.
	UntitledName = "Untitled"

	maxAttempts = 5

	// emptyMD5 is the checksum of zero bytes. Drive reports it only for files
	// that really have a size of zero.
	emptyMD5 = "d41d8cd98f00b204e9800998ecf8427e"
)

var (
	// ErrCredentialsMissing is returned when the OAuth client credentials file does not exist.
	ErrCredentialsMissing = errors.New("credentials file not found")
	// ErrRateLimited is returned when every attempt of a page fetch was rate limited.
	ErrRateLimited = errors.New("max retries exceeded due to rate limiting")
)

// PageFetcher fetches one page of the listing. An empty token requests the first page.
type PageFetcher func(ctx context.Context, pageToken string) (*drive.FileList, error)

// DriveLister lists every non-trashed item visible to the authorized account.
// Authorization happens on the first ListFiles call.
type DriveLister struct {
	credentialsPath string
	prompt          io.Writer
	logger          dedupe.Logger

	fetch PageFetcher
	sleep func(ctx context.Context, d time.Duration) error
}

var _ dedupe.Lister = (*DriveLister)(nil)

// NewDriveLister creates a lister that authorizes with the OAuth client in
// credentialsPath. Instructions for the browser consent flow go to prompt.
func NewDriveLister(credentialsPath string, prompt io.Writer, logger dedupe.Logger) *DriveLister {
	return &DriveLister{
		credentialsPath: credentialsPath,
		prompt:          prompt,
		logger:          logger,
		sleep:           sleepContext,
	}
}

// NewDriveListerWithFetcher creates a lister over an already authorized page fetcher.
func NewDriveListerWithFetcher(fetch PageFetcher, logger dedupe.Logger) *DriveLister {
	return &DriveLister{logger: logger, fetch: fetch, sleep: sleepContext}
}

// ListFiles pages through the whole listing. Rate-limited pages are retried
// with exponential backoff; any other failure aborts the listing.
func (l *DriveLister) ListFiles(ctx context.Context) ([]dedupe.FileRecord, error) {
	if l.fetch == nil {
		fetch, err := l.connect(ctx)
		if err != nil {
			return nil, err
		}
		l.fetch = fetch
	}

	var files []dedupe.FileRecord
	pageToken := ""
	for page := 1; ; page++ {
		list, err := l.fetchWithRetry(ctx, pageToken)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}

		for _, f := range list.Files {
			if f.Name == "" {
				l.logger.Warn("drive item has no name", "id", f.Id, "placeholder", UntitledName)
			}
			rec, err := fileRecordFromDrive(f)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", page, err)
			}
			files = append(files, rec)
		}
		l.logger.Info("fetched page", "page", page, "items", len(list.Files), "total", len(files))

		pageToken = list.NextPageToken
		if pageToken == "" {
			return files, nil
		}
	}
}

func (l *DriveLister) fetchWithRetry(ctx context.Context, pageToken string) (*drive.FileList, error) {
	for attempt := range maxAttempts {
		list, err := l.fetch(ctx, pageToken)
		if err == nil {
			return list, nil
		}
		if !isRateLimited(err) {
			return nil, err
		}

		wait := time.Duration(1<<attempt) * time.Second
		l.logger.Warn("rate limited, backing off", "wait", wait.String(), "attempt", attempt+1)
		if err := l.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, ErrRateLimited
}

// isRateLimited matches 429 and 403 responses whose message mentions a rate limit.
func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code != http.StatusTooManyRequests && gerr.Code != http.StatusForbidden {
		return false
	}
	return strings.Contains(strings.ToLower(gerr.Error()), "rate")
}

// fileRecordFromDrive converts an API item. A missing name becomes
// UntitledName so children still resolve through it; a missing id is an error.
func fileRecordFromDrive(f *drive.File) (dedupe.FileRecord, error) {
	name := f.Name
	if name == "" {
		name = UntitledName
	}
	rec, err := dedupe.NewFileRecord(f.Id, name, f.Parents)
	if err != nil {
		return dedupe.FileRecord{}, err
	}
	rec.Checksum = f.Md5Checksum
	rec.Size = f.Size
	rec.HasSize = f.Size > 0 || f.Md5Checksum == emptyMD5
	rec.CreatedTime = f.CreatedTime
	rec.ModifiedTime = f.ModifiedTime
	rec.MimeType = f.MimeType
	return rec, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connect authorizes and returns a fetcher over the Drive API.
func (l *DriveLister) connect(ctx context.Context) (PageFetcher, error) {
	ts, err := l.tokenSource(ctx)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}

	return func(ctx context.Context, pageToken string) (*drive.FileList, error) {
		call := srv.Files.List().
			Q(ListQuery).
			PageSize(PageSize).
			Fields(googleapi.Field(ListFields)).
			IncludeItemsFromAllDrives(false).
			SupportsAllDrives(false).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		return call.Do()
	}, nil
}

// tokenSource loads the cached token, refreshing it when expired, and falls
// back to the browser consent flow. Any new token is written back to the cache.
func (l *DriveLister) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(l.credentialsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, l.credentialsPath)
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	cfg, err := google.ConfigFromJSON(secret, drive.DriveMetadataReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	tokenPath := filepath.Join(filepath.Dir(l.credentialsPath), TokenFile)
	cached, err := loadToken(tokenPath)
	if err != nil {
		l.logger.Debug("no usable cached token", "path", tokenPath, "error", err)
	}

	var tok *oauth2.Token
	if cached != nil {
		tok, err = cfg.TokenSource(ctx, cached).Token()
		if err != nil {
			l.logger.Warn("token refresh failed, reauthorizing", "error", err)
			tok = nil
		}
	}
	if tok == nil {
		tok, err = authorizeInBrowser(ctx, cfg, l.prompt)
		if err != nil {
			return nil, fmt.Errorf("authorizing: %w", err)
		}
	}

	if cached == nil || tok.AccessToken != cached.AccessToken {
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}
	return cfg.TokenSource(ctx, tok), nil
}

// authorizeInBrowser runs the installed-app flow against a loopback redirect
// on an ephemeral port.
func authorizeInBrowser(ctx context.Context, cfg *oauth2.Config, prompt io.Writer) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting redirect listener: %w", err)
	}

	flow := *cfg
	flow.RedirectURL = "http://" + ln.Addr().String() + "/"
	state := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	codes := make(chan string, 1)
	failures := make(chan error, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusForbidden)
			select {
			case failures <- fmt.Errorf("authorization denied: %s", q.Get("error")):
			default:
			}
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		select {
		case codes <- q.Get("code"):
		default:
		}
	})}
	go srv.Serve(ln)
	defer srv.Shutdown(context.Background())

	url := flow.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintf(prompt, "Open this URL in your browser to grant read-only access to Drive metadata:\n\n  %s\n\n", url)

	select {
	case code := <-codes:
		tok, err := flow.Exchange(ctx, code, oauth2.VerifierOption(verifier))
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		return tok, nil
	case err := <-failures:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}
