// Package rblicense implements offline, machine-bound activation for the
// Roll-a-Ball game client.
//
// Install with:
//
//	go get github.com/CloudNativeWorks/rollaball-license/rblicense
//
// An activation key is a single line of text:
//
//	ROLLABALL1.<base64url(payload JSON)>.<base64url(signature)>
//
// The payload names the product and the machine code it was issued for, and
// optionally an expiry. Keys are signed by the vendor and verified against
// the public key embedded in the client, so no network access is needed.
//
// # Quick Start
//
//	svc := rblicense.NewService(platform, assets.Resources())
//	if ok, reason := svc.IsActivated(); !ok {
//	    fmt.Println(reason)
//	    fmt.Println("machine code:", svc.GetMachineCode())
//	}
//
// # Issuing keys
//
// The vendor side signs payloads with the matching private key:
//
//	issuer := rblicense.NewIssuer(privateKey)
//	key, err := issuer.Issue(rblicense.ActivationPayload{
//	    Product: rblicense.ProductID,
//	    Machine: machineCode,
//	})
package rblicense
