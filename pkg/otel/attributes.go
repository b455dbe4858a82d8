package otel

import "go.opentelemetry.io/otel/attribute"

// Standard attribute keys for nexavatar services.
const (
	AttrSessionID   = "session.id"
	AttrUserID      = "user.id"
	AttrRequestID   = "request.id"
	AttrBrandID     = "brand.id"
	AttrAvatarName  = "avatar.name"
	AttrLLMModel    = "llm.model"
	AttrLLMProvider = "llm.provider"
	AttrTTSVoice    = "tts.voice"
)

func SessionID(id string) attribute.KeyValue { return attribute.String(AttrSessionID, id) }
func UserID(id string) attribute.KeyValue    { return attribute.String(AttrUserID, id) }
func RequestID(id string) attribute.KeyValue { return attribute.String(AttrRequestID, id) }
func BrandID(id string) attribute.KeyValue   { return attribute.String(AttrBrandID, id) }
func AvatarName(n string) attribute.KeyValue { return attribute.String(AttrAvatarName, n) }

func LLMModel(model string) attribute.KeyValue {
	return attribute.String(AttrLLMModel, model)
}

func LLMProvider(provider string) attribute.KeyValue {
	return attribute.String(AttrLLMProvider, provider)
}

func TTSVoice(voice string) attribute.KeyValue { return attribute.String(AttrTTSVoice, voice) }
