// Package binary downloads WasmEdge release artifacts and verifies their
// integrity.
//
// # Integrity Model
//
// Every runtime archive is checked against the release's SHA256SUM
// manifest before anything is extracted:
//   - The manifest is fetched from the same release as the archive
//   - The archive is hashed with a streaming SHA-256 and compared in
//     lowercase hex
//   - A mismatching archive is kept on disk for inspection and never
//     installed
//
// A release without a manifest yields ChecksumNotFoundError rather than a
// generic request failure, so callers can decide whether an explicit
// opt-out applies. Signatures are not verified.
//
// # Architecture
//
// The package is organized into two components:
//   - Downloader: HTTP download with connect/request timeouts, retries,
//     progress reporting and atomic tmp-file rename
//   - Verifier functions: manifest parsing (ParseManifest) and file
//     hashing (VerifyFile)
//
// # Usage
//
//	d := binary.NewDownloader(binary.Options{})
//	if err := d.DownloadToFile(ctx, url, archivePath, nil); err != nil {
//	    return err
//	}
//	sum, err := d.FetchChecksum(ctx, manifestURL, "0.14.1", archiveName)
//	if err != nil {
//	    return err
//	}
//	f, _ := os.Open(archivePath)
//	defer f.Close()
//	if err := binary.VerifyFile(f, sum); err != nil {
//	    return err
//	}
package binary
