package dispatch

import "github.com/pkg/browser"

// BrowserOpener opens URLs and paths through the OS default handlers.
type BrowserOpener struct{}

// OpenURL implements Opener.
func (BrowserOpener) OpenURL(url string) error {
	return browser.OpenURL(url)
}

// OpenPath implements Opener.
func (BrowserOpener) OpenPath(path string) error {
	return browser.OpenFile(path)
}
