package ports

import (
	"context"

	"extension-verifier/internal/entity"
)

type BrowserSession interface {
	// Launch starts the browser. A non-empty extensionDir loads that
	// unpacked extension into the session.
	Launch(ctx context.Context, extensionDir string) error
	Close(ctx context.Context) error
	ExtensionID(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout int) error
	ElementText(ctx context.Context, selector string) (string, error)
	IsVisible(ctx context.Context, selector string) (bool, error)
	Screenshot(ctx context.Context, path string) error
	IsReady() bool
}

type SuiteRunner interface {
	Execute(ctx context.Context, suite entity.Suite) (*entity.Run, error)
}
