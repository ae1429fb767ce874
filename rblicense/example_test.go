package rblicense_test

import (
	"fmt"
	"os"

	"github.com/CloudNativeWorks/rollaball-license/assets"
	"github.com/CloudNativeWorks/rollaball-license/rblicense"
)

func ExampleService_IsActivated() {
	platform, err := rblicense.NewSystemPlatform()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	svc := rblicense.NewService(platform, assets.Resources())
	if ok, reason := svc.IsActivated(); !ok {
		fmt.Println(reason)
		fmt.Println("Machine code:", svc.GetMachineCode())
	}
}

func ExampleParseActivationKey() {
	_, err := rblicense.ParseActivationKey("BAD.x.y")
	fmt.Println(rblicense.Reason(err))

	_, err = rblicense.ParseActivationKey("ROLLABALL1.notb64.notb64")
	fmt.Println(rblicense.Reason(err))
	// Output:
	// Activation key format is invalid.
	// Activation key is malformed.
}

func ExampleMachineCode() {
	code := rblicense.MachineCode(rblicense.ProductID, "0123456789abcdef0123456789abcdef", "device")
	fmt.Printf("Machine code length: %d\n", len(code))
	// Output: Machine code length: 52
}

func ExampleIssuer_Issue() {
	key, err := rblicense.GenerateRSAKeyPair(2048)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	activation, err := rblicense.NewIssuer(key).Issue(rblicense.ActivationPayload{
		Product:   rblicense.ProductID,
		Machine:   "MACHINECODE",
		ExpiresAt: "2030-12-31",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	parsed, _ := rblicense.ParseActivationKey(activation)
	fmt.Println(parsed.Prefix)
	// Output: ROLLABALL1
}
