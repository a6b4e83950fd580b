package resolver

import "github.com/Daskott/favdial/models"

// TARGET_TABLE_VERSION changes whenever an app is added to models.AllApps or
// a template below changes.
const TARGET_TABLE_VERSION = 3

// identityKind is what a template needs to address a contact.
type identityKind int

const (
	phoneIdentity identityKind = iota
	// phoneOrEmailIdentity templates take the email address when one is set.
	phoneOrEmailIdentity
)

// phoneFormat is how the phone number is written into a template.
type phoneFormat int

const (
	digitsOnly phoneFormat = iota
	// rawFormat keeps the number as entered. The native dialer asks for
	// confirmation on some platforms when the formatting is stripped.
	rawFormat
)

type target struct {
	template string
	identity identityKind
	format   phoneFormat
}

type targetKey struct {
	method models.CommunicationMethod
	app    models.CommunicationApp
}

// targets lists every supported (method, app) pair. %s is the identity.
var targets = map[targetKey]target{
	{models.VoiceCall, models.PhoneApp}: {template: "tel:%s", identity: phoneIdentity, format: rawFormat},

	{models.TextMessage, models.MessagesApp}: {template: "sms:%s", identity: phoneOrEmailIdentity},

	{models.VideoCall, models.FaceTimeApp}: {template: "facetime://%s", identity: phoneOrEmailIdentity},
	{models.VoiceCall, models.FaceTimeApp}: {template: "facetime-audio://%s", identity: phoneOrEmailIdentity},

	{models.TextMessage, models.WhatsAppApp}: {template: "whatsapp://send?phone=%s"},
	{models.VoiceCall, models.WhatsAppApp}:   {template: "whatsapp://call?phone=%s"},
	{models.VideoCall, models.WhatsAppApp}:   {template: "whatsapp://videocall?phone=%s"},

	{models.TextMessage, models.TelegramApp}: {template: "tg://resolve?phone=%s"},
	{models.VoiceCall, models.TelegramApp}:   {template: "tg://call?phone=%s"},

	{models.TextMessage, models.SignalApp}: {template: "sgnl://signal.me/#p/%s"},

	{models.TextMessage, models.ViberApp}: {template: "viber://chat?number=%s"},
	{models.VoiceCall, models.ViberApp}:   {template: "viber://call?number=%s"},

	{models.TextMessage, models.SkypeApp}: {template: "skype:%s?chat"},
	{models.VoiceCall, models.SkypeApp}:   {template: "skype:%s?call"},
	{models.VideoCall, models.SkypeApp}:   {template: "skype:%s?call&video=true"},
}

// fallbackApps is where an unknown pair is routed for each method.
var fallbackApps = map[models.CommunicationMethod]models.CommunicationApp{
	models.VoiceCall:   models.PhoneApp,
	models.VideoCall:   models.FaceTimeApp,
	models.TextMessage: models.MessagesApp,
}
