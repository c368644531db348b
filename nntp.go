package magpie

// NNTPCode represents NNTP reply codes (RFC 3977, RFC 4643).
// 1yz: informational, 2yz: success, 3yz: continue, 4yz: transient failure,
// 5yz: permanent failure.
type NNTPCode int

const (
	// 1xx - Informational
	CodeHelpFollows         NNTPCode = 100
	CodeCapabilitiesFollow  NNTPCode = 101
	CodeDate                NNTPCode = 111

	// 2xx - Success
	CodePostingAllowed      NNTPCode = 200
	CodePostingProhibited   NNTPCode = 201
	CodeSlaveNoted          NNTPCode = 202
	CodeClosing             NNTPCode = 205
	CodeGroupSelected       NNTPCode = 211
	CodeListFollows         NNTPCode = 215
	CodeArticleFollows      NNTPCode = 220
	CodeHeadFollows         NNTPCode = 221
	CodeBodyFollows         NNTPCode = 222
	CodeArticleSelected     NNTPCode = 223
	CodeOverviewFollows     NNTPCode = 224
	CodeHeadersFollow       NNTPCode = 225
	CodeNewNewsFollows      NNTPCode = 230
	CodeNewGroupsFollow     NNTPCode = 231
	CodeTransferAccepted    NNTPCode = 235
	CodePostAccepted        NNTPCode = 240
	CodeAuthAccepted        NNTPCode = 281
	CodeXGTitleFollows      NNTPCode = 282
	CodeXSecretAccepted     NNTPCode = 290

	// 3xx - Continue
	CodeSendTransfer        NNTPCode = 335
	CodeSendArticle         NNTPCode = 340
	CodePasswordRequired    NNTPCode = 381
	CodeContinueTLS         NNTPCode = 382

	// 4xx - Transient failure
	CodeServiceDiscontinued NNTPCode = 400
	CodeNoSuchGroup         NNTPCode = 411
	CodeNoGroupSelected     NNTPCode = 412
	CodeNoArticleSelected   NNTPCode = 420
	CodeNoNextArticle       NNTPCode = 421
	CodeNoPrevArticle       NNTPCode = 422
	CodeNoSuchArticleNumber NNTPCode = 423
	CodeNoSuchArticle       NNTPCode = 430
	CodePostingFailed       NNTPCode = 441
	CodeAuthRequired        NNTPCode = 480
	CodeAuthRejected        NNTPCode = 481

	// 5xx - Permanent failure
	CodeUnknownCommand      NNTPCode = 500
	CodeSyntaxError         NNTPCode = 501
	CodePermissionDenied    NNTPCode = 502
	CodeFeatureNotSupported NNTPCode = 503
)

// longReplyCodes is the set of status codes whose replies carry a
// dot-terminated multi-line payload. 211 belongs to the set only in reply
// to LISTGROUP; the command engine passes it explicitly for that command.
var longReplyCodes = map[NNTPCode]bool{
	CodeHelpFollows:        true,
	CodeCapabilitiesFollow: true,
	CodeListFollows:        true,
	CodeArticleFollows:     true,
	CodeHeadFollows:        true,
	CodeBodyFollows:        true,
	CodeOverviewFollows:    true,
	CodeHeadersFollow:      true,
	CodeNewNewsFollows:     true,
	CodeNewGroupsFollow:    true,
	CodeXGTitleFollows:     true,
}

const (
	// DefaultPort is the standard NNTP port for plaintext and STARTTLS
	// connections.
	DefaultPort = 119

	// DefaultTLSPort is the standard port for implicit TLS (NNTPS).
	DefaultTLSPort = 563

	// MaxLineLength bounds a single protocol line, terminator included.
	// RFC 3977 guarantees 512; deployed servers routinely exceed that for
	// overview records, so the framer allows four times the RFC bound.
	MaxLineLength = 2048
)

// Well-known capability labels (RFC 3977 section 5.2, plus deployed
// pre-standard extensions).
const (
	CapVersion        = "VERSION"
	CapImplementation = "IMPLEMENTATION"
	CapReader         = "READER"
	CapOver           = "OVER"
	CapHdr            = "HDR"
	CapPost           = "POST"
	CapIHave          = "IHAVE"
	CapNewNews        = "NEWNEWS"
	CapStartTLS       = "STARTTLS"
	CapAuthInfo       = "AUTHINFO"
	CapXSecret        = "XSECRET"
	CapList           = "LIST"
)
