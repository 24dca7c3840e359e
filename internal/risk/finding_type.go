package risk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	knownVulnerabilityAliasConstant     = "CVE"
	weaknessClassAliasConstant          = "CWE"
	findingTypeObjectKeyCountErrorText  = "finding type object must contain exactly one kind"
	unsupportedFindingKindTemplate      = "unsupported finding type %q"
	referenceRequiredTemplateConstant   = "finding type %s requires a reference"
	referenceNotAllowedTemplateConstant = "finding type %s does not carry a reference"
	findingTypeDecodeErrorTemplate      = "unable to decode finding type: %w"
)

// FindingKind enumerates the categories of security findings.
type FindingKind string

// Supported finding kinds.
const (
	FindingKindKnownVulnerability FindingKind = "KnownVulnerability"
	FindingKindWeaknessClass      FindingKind = "WeaknessClass"
	FindingKindZeroDay            FindingKind = "ZeroDay"
	FindingKindSupplyChain        FindingKind = "SupplyChain"
	FindingKindDependency         FindingKind = "Dependency"
	FindingKindConfiguration      FindingKind = "Configuration"
	FindingKindCodePattern        FindingKind = "CodePattern"
	FindingKindSecret             FindingKind = "Secret"
	FindingKindCompliance         FindingKind = "Compliance"
)

var findingKindAliases = map[string]FindingKind{
	knownVulnerabilityAliasConstant: FindingKindKnownVulnerability,
	weaknessClassAliasConstant:      FindingKindWeaknessClass,
}

var allFindingKinds = []FindingKind{
	FindingKindKnownVulnerability,
	FindingKindWeaknessClass,
	FindingKindZeroDay,
	FindingKindSupplyChain,
	FindingKindDependency,
	FindingKindConfiguration,
	FindingKindCodePattern,
	FindingKindSecret,
	FindingKindCompliance,
}

// RequiresReference reports whether the kind carries an external identifier (CVE or CWE).
func (kind FindingKind) RequiresReference() bool {
	return kind == FindingKindKnownVulnerability || kind == FindingKindWeaknessClass
}

// FindingType tags a finding with its kind and, for known vulnerabilities and
// weakness classes, the external identifier.
type FindingType struct {
	Kind      FindingKind
	Reference string
}

// String renders the type as Kind or Kind(Reference).
func (findingType FindingType) String() string {
	if findingType.Kind.RequiresReference() {
		return fmt.Sprintf("%s(%s)", findingType.Kind, findingType.Reference)
	}
	return string(findingType.Kind)
}

// MarshalJSON encodes unit kinds as strings and referenced kinds as single-key objects.
// An unset type encodes as null.
func (findingType FindingType) MarshalJSON() ([]byte, error) {
	if len(findingType.Kind) == 0 {
		return jsonNullLiteral, nil
	}
	if findingType.Kind.RequiresReference() {
		var buffer bytes.Buffer
		buffer.WriteByte('{')
		encodedKey, keyError := json.Marshal(string(findingType.Kind))
		if keyError != nil {
			return nil, keyError
		}
		encodedReference, referenceError := json.Marshal(findingType.Reference)
		if referenceError != nil {
			return nil, referenceError
		}
		buffer.Write(encodedKey)
		buffer.WriteByte(':')
		buffer.Write(encodedReference)
		buffer.WriteByte('}')
		return buffer.Bytes(), nil
	}
	return json.Marshal(string(findingType.Kind))
}

// UnmarshalJSON accepts "ZeroDay" style strings and {"CVE": "CVE-2024-0001"} style objects.
// Null leaves the type unset.
func (findingType *FindingType) UnmarshalJSON(data []byte) error {
	trimmedData := bytes.TrimSpace(data)
	if bytes.Equal(trimmedData, jsonNullLiteral) {
		return nil
	}
	if len(trimmedData) > 0 && trimmedData[0] == '{' {
		var taggedValue map[string]string
		if decodeError := json.Unmarshal(trimmedData, &taggedValue); decodeError != nil {
			return fmt.Errorf(findingTypeDecodeErrorTemplate, decodeError)
		}
		if len(taggedValue) != 1 {
			return errors.New(findingTypeObjectKeyCountErrorText)
		}
		for kindName, reference := range taggedValue {
			kind, kindError := resolveFindingKind(kindName)
			if kindError != nil {
				return kindError
			}
			if !kind.RequiresReference() {
				return fmt.Errorf(referenceNotAllowedTemplateConstant, kind)
			}
			*findingType = FindingType{Kind: kind, Reference: strings.TrimSpace(reference)}
		}
		return nil
	}

	var kindName string
	if decodeError := json.Unmarshal(trimmedData, &kindName); decodeError != nil {
		return fmt.Errorf(findingTypeDecodeErrorTemplate, decodeError)
	}
	kind, kindError := resolveFindingKind(kindName)
	if kindError != nil {
		return kindError
	}
	if kind.RequiresReference() {
		return fmt.Errorf(referenceRequiredTemplateConstant, kind)
	}
	*findingType = FindingType{Kind: kind}
	return nil
}

func resolveFindingKind(kindName string) (FindingKind, error) {
	trimmedName := strings.TrimSpace(kindName)
	if aliasedKind, isAlias := findingKindAliases[strings.ToUpper(trimmedName)]; isAlias {
		return aliasedKind, nil
	}
	for _, candidateKind := range allFindingKinds {
		if strings.EqualFold(string(candidateKind), trimmedName) {
			return candidateKind, nil
		}
	}
	return "", fmt.Errorf(unsupportedFindingKindTemplate, kindName)
}
