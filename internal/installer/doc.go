// Package installer downloads the Pact Ruby standalone bundle for the host
// platform and unpacks it into a destination directory.
//
// # Security Model
//
// Extraction is all-or-nothing. Every archive member is validated before a
// single file is written:
//   - The member path is joined onto the destination and cleaned
//   - The result must be the destination or a descendant of it, checked
//     component-wise (a sibling such as "/opt/app-evil" does not pass for
//     "/opt/app")
//   - Symlink and hardlink targets must stay inside the destination, and no
//     member may be written through a symlink from the same archive
//   - Members above the size cap are rejected
//
// The tar.gz and zip formats share the same validation.
//
// # Usage
//
//	mgr, err := installer.NewManager(installer.Config{
//	    Options: installer.Options{Version: installer.DefaultVersion},
//	})
//	if err != nil {
//	    return err
//	}
//
//	res, err := mgr.Install(ctx, "/opt/pact")
//	if err != nil {
//	    var traversal *installer.PathTraversalError
//	    if errors.As(err, &traversal) {
//	        // malicious archive
//	    }
//	    return err
//	}
//	fmt.Println("installed", res.Artifact.FileName())
//
// # Architecture
//
//   - Resolve: platform description to target and archive suffix
//   - Downloader: single-attempt HTTP download to a local file
//   - Verifier: optional SHA256 checksum or OpenPGP signature check
//   - Extractor: plan/validate then write, for tar.gz and zip
//   - Manager: orchestration and destination policy
package installer
