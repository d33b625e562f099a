package cli

import (
	"errors"
	"fmt"

	"github.com/wasmedge/wasmedgeup/internal/binary"
	"github.com/wasmedge/wasmedgeup/internal/config"
	"github.com/wasmedge/wasmedgeup/internal/lock"
	"github.com/wasmedge/wasmedgeup/internal/store"
)

// describeError renders err for the terminal, adding the next step a user
// can take where one exists.
func describeError(err error, verbose bool) string {
	var (
		parseErr    *config.ParseError
		mismatch    *binary.ChecksumMismatchError
		notFound    *binary.ChecksumNotFoundError
		missing     *store.VersionNotFoundError
		permissions *store.InsufficientPermissionsError
	)

	switch {
	case errors.As(err, &parseErr):
		return config.FormatError(err, verbose)
	case errors.As(err, &mismatch):
		return hint(err, "the download may be corrupt; run the install again")
	case errors.As(err, &notFound):
		return hint(err, "pass --no-verify to install without checksum verification")
	case errors.As(err, &missing):
		return hint(err, "run `wasmedgeup list --installed` to see installed versions")
	case errors.As(err, &permissions):
		return err.Error()
	case errors.Is(err, lock.ErrLockExists):
		return hint(err, "wait for the other operation to finish and try again")
	case errors.Is(err, store.ErrNoVersionsInstalled):
		return hint(err, "run `wasmedgeup install` first")
	}
	return err.Error()
}

func hint(err error, next string) string {
	return fmt.Sprintf("%v\n%s %s", err, warnStyle.Render("hint:"), next)
}
