package controller

import "errors"

var (
	ErrParseRequest = errors.New("failed to parse request")

	ErrUserRegister  = errors.New("failed to register user")
	ErrGenerateToken = errors.New("failed to generate token")
	ErrUserLogin     = errors.New("failed to login")
	ErrGetProfile    = errors.New("failed to get profile")
	ErrUpdateProfile = errors.New("failed to update profile")

	ErrCreateSession      = errors.New("failed to create an agent session")
	ErrGetSessions        = errors.New("failed to get agent sessions")
	ErrDeleteSession      = errors.New("failed to delete an agent session")
	ErrGetSessionMessages = errors.New("failed to get session messages")
	ErrUpdateSessionTitle = errors.New("failed to update session title")

	ErrCreateAgent = errors.New("failed to create an agent")
	ErrCallAgent   = errors.New("error while calling agent")

	ErrCreateAttempt   = errors.New("failed to create quiz attempt")
	ErrGetAttempt      = errors.New("failed to get quiz attempt")
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	ErrUpdateAnswers   = errors.New("failed to update answers")
	ErrSubmitAttempt   = errors.New("failed to submit quiz attempt")
	ErrCloneAttempt    = errors.New("failed to clone quiz attempt")
	ErrGetHistory      = errors.New("failed to get quiz history")

	ErrGeneratePolicyToken = errors.New("failed to generate policy token")
	ErrGetMaterials        = errors.New("failed to get study materials")
	ErrUploadMaterial      = errors.New("failed to upload study material metadata")
	ErrDeleteMaterial      = errors.New("failed to delete study material")
	ErrGetPreSignedURL     = errors.New("failed to get presigned url")

	ErrUploadRecording = errors.New("failed to register speaking recording")
	ErrGetRecordings   = errors.New("failed to get speaking recordings")

	ErrRelayUpgrade = errors.New("failed to upgrade relay connection")
)
