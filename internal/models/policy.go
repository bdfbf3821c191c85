package models

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags.
const (
	TracePolicyTag = "PSXTracePolicySetting"
	LogPolicyTag   = "PSXLogPolicySetting"
)

// policySetting is the flag and tag handling shared by every policy setting.
type policySetting struct {
	tag        string
	useSetting bool
}

func (p policySetting) toXML() *etree.Element {
	el := etree.NewElement(p.tag)
	contract.SetYesNo(el, "useSetting", p.useSetting)
	return el
}

func decodePolicy(el *etree.Element, tag string) (policySetting, error) {
	if err := contract.CheckTag(el, tag); err != nil {
		return policySetting{}, err
	}
	use, err := contract.YesNoAttr(el, "useSetting")
	if err != nil {
		return policySetting{}, err
	}
	return policySetting{tag: tag, useSetting: use}, nil
}

// TracePolicySetting records whether an archive asks for tracing on install.
type TracePolicySetting struct {
	policySetting
}

// NewTracePolicySetting returns a trace policy with the given flag.
func NewTracePolicySetting(useSetting bool) *TracePolicySetting {
	return &TracePolicySetting{policySetting{tag: TracePolicyTag, useSetting: useSetting}}
}

// UseSetting returns the stored flag.
func (p *TracePolicySetting) UseSetting() bool { return p.useSetting }

// IsTraceEnabled always reports false; the stored flag is not consulted.
func (p *TracePolicySetting) IsTraceEnabled() bool { return false }

func (p *TracePolicySetting) Equal(o *TracePolicySetting) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.policySetting == o.policySetting
}

func (p *TracePolicySetting) ToXML() *etree.Element { return p.toXML() }

// DecodeTracePolicySetting reads a PSXTracePolicySetting element.
func DecodeTracePolicySetting(el *etree.Element) (*TracePolicySetting, error) {
	ps, err := decodePolicy(el, TracePolicyTag)
	if err != nil {
		return nil, err
	}
	return &TracePolicySetting{ps}, nil
}

// LogPolicySetting records whether an archive asks for install logging.
type LogPolicySetting struct {
	policySetting
}

// NewLogPolicySetting returns a log policy with the given flag.
func NewLogPolicySetting(useSetting bool) *LogPolicySetting {
	return &LogPolicySetting{policySetting{tag: LogPolicyTag, useSetting: useSetting}}
}

// UseSetting returns the stored flag.
func (p *LogPolicySetting) UseSetting() bool { return p.useSetting }

// IsLogEnabled always reports false; the stored flag is not consulted.
func (p *LogPolicySetting) IsLogEnabled() bool { return false }

func (p *LogPolicySetting) Equal(o *LogPolicySetting) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.policySetting == o.policySetting
}

func (p *LogPolicySetting) ToXML() *etree.Element { return p.toXML() }

// DecodeLogPolicySetting reads a PSXLogPolicySetting element.
func DecodeLogPolicySetting(el *etree.Element) (*LogPolicySetting, error) {
	ps, err := decodePolicy(el, LogPolicyTag)
	if err != nil {
		return nil, err
	}
	return &LogPolicySetting{ps}, nil
}
