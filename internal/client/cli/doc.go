// Package cli implements bucketctl, an operator command line over the
// storage gateway.
//
// The gateway is built in-process from the same settings the server uses,
// so every command exercises the real transport chain and parser:
//
//	bucketctl list
//	bucketctl search --tag1 AI_GEN
//	bucketctl upload report.pdf --external-id stu-42 --tag1 cv
//	bucketctl diagnose
//
// The bucket token is read from --token, BUCKET_TOKEN or, with
// --token-prompt, from the terminal without echo.
package cli
