package webAuth_test

import (
	"context"
	"errors"
	"fmt"

	webAuth "github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/store/memory"
)

func exampleEngine() *webAuth.Engine {
	cfg := webAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := webAuth.New().
		WithConfig(cfg).
		WithCredentialStore(memory.New()).
		Build()
	if err != nil {
		panic(err)
	}
	return engine
}

// ExampleNew builds an engine over the in-memory store.
func ExampleNew() {
	engine := exampleEngine()
	defer engine.Close()

	fmt.Println(engine.Config().Session.CookieName)
	// Output: session
}

func ExampleEngine_Login() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	_, _ = engine.Register(ctx, webAuth.RegisterRequest{
		Email: "alice@example.com", Password: "s3cret-pass", Name: "Alice",
	})

	_, err := engine.Login(ctx, "alice@example.com", "wrong")
	fmt.Println(errors.Is(err, webAuth.ErrInvalidCredentials))

	res, err := engine.Login(ctx, "Alice@Example.com", "s3cret-pass")
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Session.Email, res.Session.Role)
	// Output:
	// true
	// alice@example.com USER
}

func ExampleEngine_Decide() {
	engine := exampleEngine()
	defer engine.Close()
	ctx := context.Background()

	res, _ := engine.Register(ctx, webAuth.RegisterRequest{
		Email: "bob@example.com", Password: "s3cret-pass", Name: "Bob",
	})

	for _, path := range []string{"/dashboard", "/admin", "/login"} {
		d := engine.Decide(ctx, path, res.Token)
		if d.Kind == webAuth.DecisionRedirect {
			fmt.Println(path, d.Kind, d.Target)
			continue
		}
		fmt.Println(path, d.Kind)
	}
	fmt.Println("/profile", engine.Decide(ctx, "/profile", "").Target)
	// Output:
	// /dashboard allow
	// /admin redirect /unauthorized
	// /login redirect /dashboard
	// /profile /login
}
