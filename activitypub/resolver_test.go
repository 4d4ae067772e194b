package activitypub

import (
	"testing"

	"github.com/deemkeen/groupodon/util"
)

func testConf() *util.AppConfig {
	conf := &util.AppConfig{}
	conf.Conf.ServerAddress = "example.com"
	conf.Conf.ServerPort = 443
	conf.Conf.Https = true
	return conf
}

func TestParseActorUser(t *testing.T) {
	ref, kind := ParseActor("https://example.com/user/alyssa")
	if kind != KindUser {
		t.Fatalf("Expected user kind, got %s", kind)
	}
	if ref.Name != "alyssa" || ref.Server != "example.com" || ref.Port != 0 {
		t.Errorf("Unexpected ref: %+v", ref)
	}
}

func TestParseActorGroupWithPort(t *testing.T) {
	ref, kind := ParseActor("http://social.example.org:8080/group/gardening")
	if kind != KindGroup {
		t.Fatalf("Expected group kind, got %s", kind)
	}
	if ref.Name != "gardening" || ref.Server != "social.example.org" || ref.Port != 8080 {
		t.Errorf("Unexpected ref: %+v", ref)
	}
}

func TestParseActorTrailingSlash(t *testing.T) {
	_, kind := ParseActor("https://example.com/user/alyssa/")
	if kind != KindUser {
		t.Errorf("Trailing slash should not change the kind, got %s", kind)
	}
}

func TestParseActorInvalid(t *testing.T) {
	cases := []string{
		"",
		"not a uri at all",
		"https://example.com",
		"https://example.com/user",
		"https://example.com/user/",
		"https://example.com/other/alyssa",
		"https://example.com/foreign/group/whatever",
		"https://example.com/user/alyssa/extra",
	}
	for _, uri := range cases {
		if _, kind := ParseActor(uri); kind != KindInvalid {
			t.Errorf("Expected invalid kind for %q, got %s", uri, kind)
		}
	}
}

func TestBuildActorURI(t *testing.T) {
	conf := testConf()
	if got := BuildActorURI(conf, "alyssa", KindUser); got != "https://example.com/user/alyssa" {
		t.Errorf("Unexpected user uri: %s", got)
	}
	if got := BuildActorURI(conf, "gardening", KindGroup); got != "https://example.com/group/gardening" {
		t.Errorf("Unexpected group uri: %s", got)
	}
}

func TestBuildActorURIEscapesName(t *testing.T) {
	conf := testConf()
	got := BuildActorURI(conf, "two words", KindUser)
	if got != "https://example.com/user/two%20words" {
		t.Errorf("Expected escaped name, got %s", got)
	}
}

func TestBuildActorURINonDefaultPort(t *testing.T) {
	conf := &util.AppConfig{}
	conf.Conf.ServerAddress = "localhost"
	conf.Conf.ServerPort = 8080
	if got := BuildActorURI(conf, "dev", KindUser); got != "http://localhost:8080/user/dev" {
		t.Errorf("Unexpected uri: %s", got)
	}
}

func TestActivityURI(t *testing.T) {
	if got := ActivityURI(testConf(), 17); got != "https://example.com/p/17" {
		t.Errorf("Unexpected activity uri: %s", got)
	}
}

func TestFilterActorsByKind(t *testing.T) {
	uris := []string{
		"https://example.com/user/alyssa",
		"https://example.com/group/gardening",
		"https://example.com/foreign/group/whatever",
		"not a uri",
		"https://example.com/group/chess",
	}

	groups := FilterActorsByKind(uris, KindGroup)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "gardening" || groups[1].Name != "chess" {
		t.Errorf("Order not preserved: %+v", groups)
	}

	users := FilterActorsByKind(uris, KindUser)
	if len(users) != 1 || users[0].Name != "alyssa" {
		t.Errorf("Unexpected users: %+v", users)
	}
}

func TestExtractReferenceURI(t *testing.T) {
	if got := ExtractReferenceURI("https://example.com/p/1"); got != "https://example.com/p/1" {
		t.Errorf("String ref: %s", got)
	}
	if got := ExtractReferenceURI([]any{"https://example.com/p/2"}); got != "https://example.com/p/2" {
		t.Errorf("Array of strings ref: %s", got)
	}
	if got := ExtractReferenceURI([]any{map[string]any{"id": "https://example.com/p/3"}}); got != "https://example.com/p/3" {
		t.Errorf("Array of objects ref: %s", got)
	}
	if got := ExtractReferenceURI(nil); got != "" {
		t.Errorf("Nil ref should yield empty, got %s", got)
	}
	if got := ExtractReferenceURI([]any{}); got != "" {
		t.Errorf("Empty array should yield empty, got %s", got)
	}
}

func TestIsLocalRef(t *testing.T) {
	conf := testConf()

	local, kind := ParseActor("https://example.com/user/alyssa")
	if kind == KindInvalid || !IsLocalRef(conf, local) {
		t.Error("Expected local ref")
	}

	explicit, _ := ParseActor("https://example.com:443/user/alyssa")
	if !IsLocalRef(conf, explicit) {
		t.Error("Default port spelled out should still be local")
	}

	foreign, _ := ParseActor("https://far.example.org/user/alyssa")
	if IsLocalRef(conf, foreign) {
		t.Error("Expected foreign ref")
	}

	wrongPort, _ := ParseActor("https://example.com:8443/user/alyssa")
	if IsLocalRef(conf, wrongPort) {
		t.Error("Non-matching port should not be local")
	}
}
