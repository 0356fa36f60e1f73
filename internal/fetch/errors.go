package fetch

import (
	"errors"
	"fmt"
)

const (
	repositoryURLRequiredMessageConstant = "repository url is required"
	serviceNotReadyMessageConstant       = "fetch service is not ready"
	fetchInProgressMessageConstant       = "a fetch is already in progress"
	upstreamFetchErrorTemplateConstant   = "upstream %s failed: %v"
)

// Fetch stages that can fail upstream.
const (
	StageClone = "clone"
	StageLog   = "log"
	StageList  = "list"
)

// Sides of a file read.
const (
	SideStart = "start"
	SideEnd   = "end"
)

var (
	// ErrRepositoryURLRequired indicates the request carried no repository URL.
	ErrRepositoryURLRequired = errors.New(repositoryURLRequiredMessageConstant)
	// ErrServiceNotReady indicates the service was used before its collaborators were provided.
	ErrServiceNotReady = errors.New(serviceNotReadyMessageConstant)
	// ErrFetchInProgress indicates another fetch holds the service.
	ErrFetchInProgress = errors.New(fetchInProgressMessageConstant)
)

// UpstreamFetchError reports a fatal failure while talking to the remote repository.
type UpstreamFetchError struct {
	Stage string
	Err   error
}

// Error describes the failed stage and its cause.
func (upstreamError *UpstreamFetchError) Error() string {
	return fmt.Sprintf(upstreamFetchErrorTemplateConstant, upstreamError.Stage, upstreamError.Err)
}

// Unwrap exposes the underlying cause.
func (upstreamError *UpstreamFetchError) Unwrap() error {
	return upstreamError.Err
}

// FileWarning records a file read that failed and was replaced with empty content.
type FileWarning struct {
	Path    string `json:"path"`
	Side    string `json:"side"`
	Message string `json:"message"`
}
