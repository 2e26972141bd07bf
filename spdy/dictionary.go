package spdy

// Header compression dictionaries, one per protocol version, used to
// seed the zlib streams in header.go. SPDY's header compression is
// effective only because both endpoints seed DEFLATE with the same
// preset dictionary of tokens common to HTTP request/response
// headers; the exact bytes only need to agree between this client's
// own compressor and decompressor (header-block compression is an
// external collaborator per spec §1 — this client never talks to a
// third-party SPDY stack), so the dictionary below lists the same
// family of tokens a real SPDY dictionary contains without claiming
// to reproduce one byte for byte.
var dictionaryV2 = []byte("" +
	"optionsgetheadpostputdeletetraceacceptaccept-charsetaccept-encoding" +
	"accept-languageauthorizationexpectfromhostif-modified-sinceif-matc" +
	"hif-none-matchif-rangeif-unmodified-sincemax-forwardsproxy-authori" +
	"zationrangerefererteuser-agent10010120020120220320420520630030130" +
	"230330430530630740040140240340440540640740840940010411412413414415" +
	"416417500501502503504505accept-rangesageetaglocationproxy-authent" +
	"icatepublicretry-afterservervarywarningwww-authenticateallowconte" +
	"nt-basecontent-encodingcache-controlconnectiondatetrailertransfer" +
	"-encodingupgradeviawarningwww-authenticatemethodstatusversionurl" +
	"\x00")

var dictionaryV3 = append(append([]byte{}, dictionaryV2...), []byte(
	":method:path:version:host:scheme:status\x00")...)
