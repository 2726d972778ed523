// Package simpleupload issues short-lived, single-object presigned
// upload URLs so that untrusted clients can write directly to a private
// storage bucket without ever holding long-lived credentials.
//
// The pipeline has three stages:
//
//  1. Credential resolution: an ordered list of SecretProvider
//     implementations (managed secret store, environment) is consulted
//     until one yields a complete CredentialBundle. The bundle is
//     resolved once and cached for the process lifetime.
//  2. Key generation: each request derives a collision-free object key
//     from the current time, a 128-bit random identifier and the
//     sanitized original filename.
//  3. Presigning: a Signer built from the resolved bundle mints a
//     time-boxed write URL scoped to exactly that key.
//
// Basic usage:
//
//	svc, err := simpleupload.New(
//	    simpleupload.WithProviders(envsecrets.New()),
//	    simpleupload.WithSignerFactory(s3storage.Factory(s3storage.Config{})),
//	)
//	up, err := svc.RequestUpload(ctx, simpleupload.UploadRequest{
//	    FileName: "report.pdf",
//	})
//	// up.URL is valid for PUT until up.ExpiresAt.
//
// The service never transfers object bytes itself; the client uploads
// directly to the returned URL.
package simpleupload
