// Package manifest derives the published package manifest from the source manifest.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	nameFieldConstant                   = "name"
	versionFieldConstant                = "version"
	mainFieldConstant                   = "main"
	moduleFieldConstant                 = "module"
	typingsFieldConstant                = "typings"
	dependenciesFieldConstant           = "dependencies"
	peerDependenciesFieldConstant       = "peerDependencies"
	defaultPackageNameConstant          = "@telenia/ngx-toggle"
	defaultMainEntryConstant            = "bundles/ngx-toggle.js"
	defaultModuleEntryConstant          = "index.js"
	defaultTypingsEntryConstant         = "index.d.ts"
	indentationConstant                 = "  "
	semanticVersionPrefixConstant       = "v"
	sourceDecodeFailureTemplateConstant = "unable to decode source manifest: %w"
	objectExpectedTemplateConstant      = "%s must be a JSON object"
	sourceDocumentLabelConstant         = "source manifest"
	invalidVersionTemplateConstant      = "manifest version %q is not a semantic version"
	missingVersionMessageConstant       = "manifest version missing"
)

// ErrVersionMissing indicates the source manifest carries no version.
var ErrVersionMissing = errors.New(missingVersionMessageConstant)

// InvalidVersionError reports a version that is not a semantic version.
type InvalidVersionError struct {
	Version string
}

// Error implements the error interface.
func (versionError InvalidVersionError) Error() string {
	return fmt.Sprintf(invalidVersionTemplateConstant, versionError.Version)
}

// Options selects the generated manifest's identity and entry points.
type Options struct {
	Name         string   `mapstructure:"name"`
	Main         string   `mapstructure:"main"`
	Module       string   `mapstructure:"module"`
	Typings      string   `mapstructure:"typings"`
	CopiedFields []string `mapstructure:"copied_fields"`
}

// DefaultOptions returns the options of the published component library.
func DefaultOptions() Options {
	return Options{
		Name:         defaultPackageNameConstant,
		Main:         defaultMainEntryConstant,
		Module:       defaultModuleEntryConstant,
		Typings:      defaultTypingsEntryConstant,
		CopiedFields: []string{"version", "description", "keywords", "author", "repository", "license", "bugs", "homepage"},
	}
}

// Sanitize fills blank options with defaults.
func (options Options) Sanitize() Options {
	defaults := DefaultOptions()
	sanitized := Options{
		Name:    fallback(options.Name, defaults.Name),
		Main:    fallback(options.Main, defaults.Main),
		Module:  fallback(options.Module, defaults.Module),
		Typings: fallback(options.Typings, defaults.Typings),
	}
	for _, field := range options.CopiedFields {
		trimmed := strings.TrimSpace(field)
		if len(trimmed) > 0 {
			sanitized.CopiedFields = append(sanitized.CopiedFields, trimmed)
		}
	}
	if len(sanitized.CopiedFields) == 0 {
		sanitized.CopiedFields = defaults.CopiedFields
	}
	return sanitized
}

// Manifest is an ordered JSON object.
type Manifest struct {
	fields []Field
}

// Field is one manifest entry holding its raw JSON value.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Generate derives the published manifest from the source manifest contents. Copied fields keep
// their raw JSON values; every runtime dependency range is copied verbatim into peerDependencies.
func Generate(source []byte, options Options) (Manifest, error) {
	options = options.Sanitize()

	sourceFields, decodeError := decodeObject(source)
	if decodeError != nil {
		return Manifest{}, fmt.Errorf(sourceDecodeFailureTemplateConstant, decodeError)
	}
	sourceValues := make(map[string]json.RawMessage, len(sourceFields))
	for _, field := range sourceFields {
		sourceValues[field.Key] = field.Value
	}

	manifest := Manifest{}
	manifest.set(nameFieldConstant, encodeString(options.Name))
	for _, key := range options.CopiedFields {
		if value, present := sourceValues[key]; present {
			manifest.set(key, value)
		}
	}
	manifest.set(mainFieldConstant, encodeString(options.Main))
	manifest.set(moduleFieldConstant, encodeString(options.Module))
	manifest.set(typingsFieldConstant, encodeString(options.Typings))

	peerDependencies, peerError := derivePeerDependencies(sourceValues[dependenciesFieldConstant])
	if peerError != nil {
		return Manifest{}, peerError
	}
	manifest.set(peerDependenciesFieldConstant, peerDependencies)
	return manifest, nil
}

// Fields returns the manifest entries in output order.
func (manifest Manifest) Fields() []Field {
	return append([]Field(nil), manifest.fields...)
}

// Lookup returns the raw value of key.
func (manifest Manifest) Lookup(key string) (json.RawMessage, bool) {
	for _, field := range manifest.fields {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// PeerDependencies decodes the generated peer-dependency block.
func (manifest Manifest) PeerDependencies() (map[string]string, error) {
	peerDependencies := map[string]string{}
	raw, present := manifest.Lookup(peerDependenciesFieldConstant)
	if !present {
		return peerDependencies, nil
	}
	decodeError := json.Unmarshal(raw, &peerDependencies)
	return peerDependencies, decodeError
}

// CheckVersion reports whether the copied version is a semantic version.
func (manifest Manifest) CheckVersion() error {
	raw, present := manifest.Lookup(versionFieldConstant)
	if !present {
		return ErrVersionMissing
	}
	var version string
	if decodeError := json.Unmarshal(raw, &version); decodeError != nil {
		return InvalidVersionError{Version: string(raw)}
	}
	candidate := semanticVersionPrefixConstant + version
	if !semver.IsValid(candidate) || !isCompleteVersion(candidate) {
		return InvalidVersionError{Version: version}
	}
	return nil
}

// MarshalJSON encodes the manifest preserving field order.
func (manifest Manifest) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for index, field := range manifest.fields {
		if index > 0 {
			buffer.WriteByte(',')
		}
		buffer.Write(encodeString(field.Key))
		buffer.WriteByte(':')
		buffer.Write(field.Value)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// Render encodes the manifest with two-space indentation and a trailing newline.
func (manifest Manifest) Render() ([]byte, error) {
	compact, marshalError := manifest.MarshalJSON()
	if marshalError != nil {
		return nil, marshalError
	}
	var indented bytes.Buffer
	if indentError := json.Indent(&indented, compact, "", indentationConstant); indentError != nil {
		return nil, indentError
	}
	indented.WriteByte('\n')
	return indented.Bytes(), nil
}

func (manifest *Manifest) set(key string, value json.RawMessage) {
	manifest.fields = append(manifest.fields, Field{Key: key, Value: append(json.RawMessage(nil), value...)})
}

func derivePeerDependencies(dependencies json.RawMessage) (json.RawMessage, error) {
	peers := Manifest{}
	if len(bytes.TrimSpace(dependencies)) == 0 || bytes.Equal(bytes.TrimSpace(dependencies), []byte("null")) {
		return peers.MarshalJSON()
	}
	entries, decodeError := decodeObject(dependencies)
	if decodeError != nil {
		return nil, fmt.Errorf(objectExpectedTemplateConstant, dependenciesFieldConstant)
	}
	for _, entry := range entries {
		var versionRange string
		if json.Unmarshal(entry.Value, &versionRange) == nil {
			peers.set(entry.Key, entry.Value)
			continue
		}
		peers.set(entry.Key, encodeString(string(entry.Value)))
	}
	return peers.MarshalJSON()
}

// decodeObject reads a JSON object keeping its key order.
func decodeObject(data []byte) ([]Field, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	openingToken, tokenError := decoder.Token()
	if tokenError != nil {
		return nil, tokenError
	}
	if delimiter, isDelimiter := openingToken.(json.Delim); !isDelimiter || delimiter != '{' {
		return nil, fmt.Errorf(objectExpectedTemplateConstant, sourceDocumentLabelConstant)
	}

	fields := make([]Field, 0)
	for decoder.More() {
		keyToken, keyError := decoder.Token()
		if keyError != nil {
			return nil, keyError
		}
		key, isString := keyToken.(string)
		if !isString {
			return nil, fmt.Errorf(objectExpectedTemplateConstant, sourceDocumentLabelConstant)
		}
		var value json.RawMessage
		if valueError := decoder.Decode(&value); valueError != nil {
			return nil, valueError
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	if _, closingError := decoder.Token(); closingError != nil {
		return nil, closingError
	}
	return fields, nil
}

// isCompleteVersion rejects the vMAJOR and vMAJOR.MINOR shorthands semver accepts.
func isCompleteVersion(version string) bool {
	core := version
	if index := strings.IndexAny(core, "-+"); index >= 0 {
		core = core[:index]
	}
	return strings.Count(core, ".") == 2
}

func encodeString(value string) json.RawMessage {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(value)
	return bytes.TrimRight(buffer.Bytes(), "\n")
}

func fallback(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}
