// Package transport holds the wire contract of the catalog service: method names,
// their access tags, the JSON codec and the message types shared by server and client.
package transport

import "strings"

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ecoeat.catalog.v1.Catalog"

// Method names, relative to ServiceName.
const (
	MethodRegister      = "Register"
	MethodLogin         = "Login"
	MethodMe            = "Me"
	MethodListProducts  = "ListProducts"
	MethodListDonations = "ListDonations"
	MethodGetProduct    = "GetProduct"
	MethodCreateProduct = "CreateProduct"
	MethodUpdateProduct = "UpdateProduct"
	MethodDeleteProduct = "DeleteProduct"
)

// Access tags a method as reachable anonymously or only with a principal.
type Access int

const (
	Public Access = iota
	Protected
)

func (a Access) String() string {
	if a == Protected {
		return "protected"
	}
	return "public"
}

// Methods lists every method with its access tag.
var Methods = map[string]Access{
	MethodRegister:      Public,
	MethodLogin:         Public,
	MethodMe:            Protected,
	MethodListProducts:  Public,
	MethodListDonations: Protected,
	MethodGetProduct:    Public,
	MethodCreateProduct: Public,
	MethodUpdateProduct: Public,
	MethodDeleteProduct: Public,
}

// FullMethod returns "/<service>/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// AccessOf returns the access tag of a full method name. Methods outside the
// catalog service (health, reflection) are public.
func AccessOf(fullMethod string) Access {
	name, ok := strings.CutPrefix(fullMethod, "/"+ServiceName+"/")
	if !ok {
		return Public
	}
	a, ok := Methods[name]
	if !ok {
		return Protected
	}
	return a
}
