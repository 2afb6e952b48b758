package funcs

import (
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/value"
)

func registerCIDR(r *Registry) {
	r.register(&Spec{
		Name: "cidrsubnet",
		Params: []Param{
			{Name: "prefix", Kinds: []value.Kind{value.KindString}},
			{Name: "newbits", Kinds: []value.Kind{value.KindNumber}},
			{Name: "netnum", Kinds: []value.Kind{value.KindNumber}},
		},
		Impl: cidrsubnetImpl,
	})
	r.register(&Spec{
		Name: "cidrhost",
		Params: []Param{
			{Name: "prefix", Kinds: []value.Kind{value.KindString}},
			{Name: "hostnum", Kinds: []value.Kind{value.KindNumber}},
		},
		Impl: cidrhostImpl,
	})
	r.register(&Spec{
		Name:   "cidrnetmask",
		Params: []Param{{Name: "prefix", Kinds: []value.Kind{value.KindString}}},
		Impl:   cidrnetmaskImpl,
	})
}

func parsePrefix(fn string, s string) (*net.IPNet, error) {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		return nil, diag.ConversionError{From: "string", To: "network prefix", Detail: fmt.Sprintf("%s: %q is not CIDR notation", fn, s)}
	}
	return network, nil
}

func intArg(fn string, pos int, v value.Value) (int, error) {
	n, err := v.AsInt64()
	if err != nil {
		return 0, diag.TypeError{Subject: fn, ArgPos: pos, Want: "integral number", Got: "number", Detail: err.Error()}
	}
	return int(n), nil
}

func cidrsubnetImpl(args []value.Value) (value.Value, error) {
	network, err := parsePrefix("cidrsubnet", args[0].AsString())
	if err != nil {
		return value.Value{}, err
	}
	newbits, err := intArg("cidrsubnet", 2, args[1])
	if err != nil {
		return value.Value{}, err
	}
	netnum, err := intArg("cidrsubnet", 3, args[2])
	if err != nil {
		return value.Value{}, err
	}
	sub, serr := cidr.Subnet(network, newbits, netnum)
	if serr != nil {
		return value.Value{}, diag.ValidationError{Subject: "cidrsubnet", Message: serr.Error()}
	}
	return value.StringVal(sub.String()), nil
}

func cidrhostImpl(args []value.Value) (value.Value, error) {
	network, err := parsePrefix("cidrhost", args[0].AsString())
	if err != nil {
		return value.Value{}, err
	}
	hostnum, err := intArg("cidrhost", 2, args[1])
	if err != nil {
		return value.Value{}, err
	}
	host, herr := cidr.Host(network, hostnum)
	if herr != nil {
		return value.Value{}, diag.ValidationError{Subject: "cidrhost", Message: herr.Error()}
	}
	return value.StringVal(host.String()), nil
}

// cidrnetmaskImpl is IPv4-only: dotted-quad netmasks have no IPv6
// equivalent in common use.
func cidrnetmaskImpl(args []value.Value) (value.Value, error) {
	network, err := parsePrefix("cidrnetmask", args[0].AsString())
	if err != nil {
		return value.Value{}, err
	}
	if network.IP.To4() == nil {
		return value.Value{}, diag.TypeError{Subject: "cidrnetmask", ArgPos: 1, Want: "IPv4 prefix", Got: "IPv6 prefix"}
	}
	return value.StringVal(net.IP(network.Mask).String()), nil
}
