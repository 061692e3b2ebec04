package main

import (
	"fmt"
	"net/url"
	"strings"
)

// ownerNameFromURL extracts the "owner", "name" pair from a repository
// clone URL of the form https://github.com/owner/name(.git).
func ownerNameFromURL(repoURL string) (owner, name string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository url %q: %w", repoURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("repository url %q is not in https://host/owner/name form", repoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
